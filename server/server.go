// Package server exposes the account-linking flows over HTTP and translates
// state-machine outcomes into transport-level responses.
package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tunecord/accounts/internal/config"
	"github.com/tunecord/accounts/ledger"
	"github.com/tunecord/accounts/linking"
	"github.com/tunecord/accounts/provider"
	"github.com/tunecord/accounts/session"
	"github.com/tunecord/accounts/store"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	codec    *session.Codec
	linking  *linking.Service
	accounts store.AccountRepo
}

func New(cfg config.Config, requests store.LinkRequestRepo, accounts store.AccountRepo) (*Server, error) {
	codec, err := session.NewCodec(cfg.SessionSecret, !cfg.Dev())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session codec: %w", err)
	}

	chat := provider.NewOAuth2Exchanger(store.KindChat,
		cfg.Chat.ClientID, cfg.Chat.ClientSecret, cfg.Chat.RedirectURI, cfg.Chat.Scopes,
		provider.Endpoints{
			AuthURL:     cfg.Chat.AuthURL,
			TokenURL:    cfg.Chat.TokenURL,
			UserinfoURL: cfg.Chat.UserinfoURL,
			RevokeURL:   cfg.Chat.RevokeURL,
		})

	music := provider.NewOAuth2Exchanger(store.KindMusic,
		cfg.Music.ClientID, cfg.Music.ClientSecret, cfg.Music.RedirectURI, cfg.Music.Scopes,
		provider.Endpoints{
			AuthURL:     cfg.Music.AuthURL,
			TokenURL:    cfg.Music.TokenURL,
			UserinfoURL: cfg.Music.UserinfoURL,
			RevokeURL:   cfg.Music.RevokeURL,
		})

	linkService, err := linking.New(ledger.New(requests), accounts, chat, music)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create linking service: %w", err)
	}

	s := &Server{
		env:      cfg.Env,
		mux:      http.NewServeMux(),
		config:   cfg,
		codec:    codec,
		linking:  linkService,
		accounts: accounts,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// NewWithService wires a server around pre-built collaborators; used by
// handler tests that substitute fakes.
func NewWithService(cfg config.Config, codec *session.Codec, linkService *linking.Service, accounts store.AccountRepo) *Server {
	s := &Server{
		env:      cfg.Env,
		mux:      http.NewServeMux(),
		config:   cfg,
		codec:    codec,
		linking:  linkService,
		accounts: accounts,
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}
