package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LogoutHandler destroys the session unconditionally. Remote revocation is
// best effort and the user-visible logout never fails.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)

		s.linking.Logout(r.Context(), sess)

		if err := s.codec.Save(w, sess); err != nil {
			log.Error().Err(err).Msg("failed to flush destroyed session")
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
