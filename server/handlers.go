package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// IndexHandler reports the session's link status; the account page UI is
// built on top of this.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)
		if !sess.Authenticated() {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}

		status := map[string]any{
			"identity":     sess.Identity,
			"music_linked": false,
		}

		account, err := s.accounts.Get(r.Context(), sess.Identity, store.KindMusic)
		switch {
		case err == nil:
			status["music_linked"] = true
			status["music_username"] = account.Username
		case errors.Is(err, store.ErrNotFound):
		default:
			log.Error().Err(err).Msg("failed to read link status")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}
