package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/linking"
)

// LoginHandler starts the primary-provider login flow. A fresh CSRF token is
// flushed into the session cookie before the redirect leaves.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)
		if sess.Authenticated() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		authorizeURL, err := s.linking.BeginLogin(sess)
		if err != nil {
			log.Error().Err(err).Msg("failed to begin login")
			renderPage(w, genericFailurePage)
			return
		}

		if err := s.codec.Save(w, sess); err != nil {
			log.Error().Err(err).Msg("failed to flush session")
			renderPage(w, genericFailurePage)
			return
		}

		http.Redirect(w, r, authorizeURL, http.StatusFound)
	}
}

// LoginCallbackHandler completes the primary-provider login. The session is
// flushed before any response body is written.
func (s *Server) LoginCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)

		reason, err := s.linking.CompleteLogin(r.Context(),
			sess,
			r.URL.Query().Get("code"),
			r.URL.Query().Get("error"),
			r.URL.Query().Get("state"),
		)

		if saveErr := s.codec.Save(w, sess); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to flush session")
			renderPage(w, genericFailurePage)
			return
		}

		if err != nil {
			log.Error().Err(err).Msg("login callback failed")
			renderPage(w, genericFailurePage)
			return
		}
		if reason != linking.ReasonNone {
			renderReason(w, reason)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
