package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/ledger"
	"github.com/tunecord/accounts/linking"
)

// APILinkHandler issues (or re-issues) the caller's one-time link request.
// The token builds the shareable link page; issuing is idempotent while a
// live request exists.
func (s *Server) APILinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := identityFromContext(r.Context())

		token, err := s.linking.BeginLink(r.Context(), ownerID)
		if err != nil {
			log.Error().Err(err).Msg("failed to issue link request")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// LinkPageHandler serves the shareable link page. The link token is the
// bearer credential here: no login is required, the page binds the browser
// to the flow by regenerating the session's CSRF token.
func (s *Server) LinkPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)

		authorizeURL, err := s.linking.AuthorizeLink(r.Context(), sess, r.PathValue("token"))
		if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, ledger.ErrExpired) {
			renderPage(w, invalidLinkPage)
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to prepare link authorization")
			renderPage(w, genericFailurePage)
			return
		}

		if err := s.codec.Save(w, sess); err != nil {
			log.Error().Err(err).Msg("failed to flush session")
			renderPage(w, genericFailurePage)
			return
		}

		renderPage(w, resultPage{
			Title:        "Link your music account",
			Message:      "Authorize access to your music account to finish linking.",
			AuthorizeURL: authorizeURL,
			status:       http.StatusOK,
		})
	}
}

// LinkCallbackHandler completes the secondary-provider link and renders the
// outcome.
func (s *Server) LinkCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.codec.Load(r)

		reason, err := s.linking.CompleteLink(r.Context(),
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
			log.Error().Err(err).Msg("link callback failed")
			renderPage(w, genericFailurePage)
			return
		}
		if reason != linking.ReasonNone {
			renderReason(w, reason)
			return
		}

		renderPage(w, linkSuccessPage)
	}
}
