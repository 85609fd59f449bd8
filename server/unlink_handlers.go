package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/store"
)

// APIUnlinkHandler disconnects the music account. Remote revocation is best
// effort; the local row always goes.
func (s *Server) APIUnlinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := identityFromContext(r.Context())

		if err := s.linking.Unlink(r.Context(), ownerID, store.KindMusic); err != nil {
			log.Error().Err(err).Msg("failed to unlink music account")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// APIUnlinkChatHandler disconnects the chat account. The chat credential is
// what authentication rests on, so the session is destroyed with it.
func (s *Server) APIUnlinkChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		ownerID := identityFromContext(r.Context())

		if err := s.linking.Unlink(r.Context(), ownerID, store.KindChat); err != nil {
			log.Error().Err(err).Msg("failed to unlink chat account")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		sess.Destroy()
		if err := s.codec.Save(w, sess); err != nil {
			log.Error().Err(err).Msg("failed to flush destroyed session")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
