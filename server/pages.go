package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/linking"
)

// The presentation layer proper lives elsewhere; these pages are the minimal
// server-rendered surface the flows need.
var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .AuthorizeURL}}<p><a href="{{.AuthorizeURL}}">Authorize</a></p>{{end}}
</main>
</body>
</html>
`))

type resultPage struct {
	Title        string
	Message      string
	AuthorizeURL string
	status       int
}

var reasonPages = map[linking.Reason]resultPage{
	linking.ReasonProviderDenied: {
		Title:   "Account connection failed",
		Message: "You have cancelled the connection process.",
		status:  http.StatusOK,
	},
	linking.ReasonBadRequest: {
		Title:   "Invalid request received",
		Message: "The request received from the browser was invalid or cannot be served. If the problem keeps happening, please restart your browser and try again.",
		status:  http.StatusBadRequest,
	},
	linking.ReasonCodeInvalid: {
		Title:   "Invalid code received",
		Message: "The authorization code provided is invalid. Please try again.",
		status:  http.StatusBadRequest,
	},
	linking.ReasonPremiumRequired: {
		Title:   "Premium account required",
		Message: "You need a premium subscription on your music account to use this service.",
		status:  http.StatusOK,
	},
}

var (
	linkSuccessPage = resultPage{
		Title:   "Successfully linked account",
		Message: "Your music account has successfully been linked. You can close this page and return to the chat.",
		status:  http.StatusOK,
	}
	invalidLinkPage = resultPage{
		Title:   "Session is invalid",
		Message: "The link is either invalid or the session might have expired. Please request a new link from the bot.",
		status:  http.StatusNotFound,
	}
	genericFailurePage = resultPage{
		Title:   "Something went wrong",
		Message: "An unexpected error occurred. Please try again later.",
		status:  http.StatusInternalServerError,
	}
)

func renderPage(w http.ResponseWriter, page resultPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(page.status)
	if err := resultTemplate.Execute(w, page); err != nil {
		log.Error().Err(err).Msg("failed to render page")
	}
}

func renderReason(w http.ResponseWriter, reason linking.Reason) {
	page, ok := reasonPages[reason]
	if !ok {
		page = genericFailurePage
	}
	renderPage(w, page)
}
