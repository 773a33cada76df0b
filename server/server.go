// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"crypto/elliptic"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/decred/sessionstash/drafts"
	v1 "github.com/decred/sessionstash/server/api/v1"
	sn "github.com/decred/sessionstash/server/sessions"
	"github.com/decred/sessionstash/stash"
	"github.com/decred/sessionstash/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

// Server is the stash daemon http server.
type Server struct {
	cfg       *Config
	server    *http.Server
	router    *mux.Router // Parent router
	protected *mux.Router // CSRF protected subrouter
	sessions  sessions.Store
	drafts    *drafts.DB

	// stash contains the stashable entity types whose counts are added to
	// the request context.
	stash *stash.Registry
}

// New returns a new Server. The HTTPS cert pair, the CSRF key and the session
// key are created if they do not exist.
func New(cfg *Config, sdb sn.DB, d *drafts.DB) (*Server, error) {
	err := verifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	err = generateHTTPSCertPair(cfg.HTTPSCert, cfg.HTTPSKey)
	if err != nil {
		return nil, err
	}
	csrfKey, err := loadCSRFKey(cfg.CSRFKey)
	if err != nil {
		return nil, err
	}
	sessionKey, err := loadSessionKey(cfg.SessionKey)
	if err != nil {
		return nil, err
	}

	// Setup the sessions store
	opts := sn.NewOptions(int(cfg.SessionMaxAge))
	ss := sn.NewStore(sdb, opts, sessionKey)

	return newServer(cfg, ss, d, csrfKey, true), nil
}

// newServer returns a new Server that uses the provided sessions store. The
// configuration must already be verified.
func newServer(cfg *Config, ss sessions.Store, d *drafts.DB, csrfKey []byte, secure bool) *Server {
	router, protected := NewRouter(cfg.ReqBodySizeLimit, csrfKey,
		int(cfg.CSRFMaxAge), secure)

	s := Server{
		cfg:       cfg,
		router:    router,
		protected: protected,
		sessions:  ss,
		drafts:    d,
		stash:     stash.NewRegistry(d.Drafts),
	}

	s.router.Use(s.stashContextMiddleware)
	s.setupRoutes()

	return &s
}

// ListenAndServeTLS starts the https server. The listen error is sent to the
// provided channel.
func (s *Server) ListenAndServeTLS(listenC chan error) {
	go func() {
		s.server = &http.Server{
			Handler:      s.router,
			Addr:         s.cfg.Listen,
			ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				CurvePreferences: []tls.CurveID{
					tls.CurveP256, // BLAME CHROME, NOT ME!
					tls.CurveP521,
					tls.X25519},
				PreferServerCipherSuites: true,
				CipherSuites: []uint16{
					tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
					tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
					tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
					tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				},
			},
			TLSNextProto: make(map[string]func(*http.Server,
				*tls.Conn, http.Handler)),
		}
		log.Infof("Listen: %v", s.cfg.Listen)
		listenC <- s.server.ListenAndServeTLS(s.cfg.HTTPSCert, s.cfg.HTTPSKey)
	}()
}

// Shutdown gracefully shuts down the server without interrupting any
// active connections.
func (s *Server) Shutdown() {
	if s.server == nil {
		return
	}
	err := s.server.Shutdown(context.Background())
	if err != nil {
		log.Errorf("Shutdown: %v", err)
	}
}

// setupRoutes set ups the v1 API routes.
func (s *Server) setupRoutes() {
	// The version route sets the CSRF header token and thus needs
	// to be part of the CSRF protected router so that the cookie
	// CSRF token is set too. The CSRF cookie is set on all protected
	// routes. The header token is only set on the version route.
	addRoute(s.protected, http.MethodGet, v1.APIVersionPrefix,
		v1.VersionRoute, s.handleVersion)

	// Unprotected routes. These do not modify the session.
	addRoute(s.router, http.MethodGet, v1.APIVersionPrefix,
		v1.PolicyRoute, s.handlePolicy)
	addRoute(s.router, http.MethodGet, v1.APIVersionPrefix,
		v1.DraftsRoute, s.handleDrafts)
	addRoute(s.router, http.MethodGet, v1.APIVersionPrefix,
		v1.DraftRoute, s.handleDraft)
	addRoute(s.router, http.MethodGet, v1.APIVersionPrefix,
		v1.StashCountsRoute, s.handleStashCounts)

	// CSRF protected routes
	addRoute(s.protected, http.MethodPost, v1.APIVersionPrefix,
		v1.UserNewRoute, s.handleUserNew)
	addRoute(s.protected, http.MethodPost, v1.APIVersionPrefix,
		v1.LoginRoute, s.handleLogin)
	addRoute(s.protected, http.MethodPost, v1.APIVersionPrefix,
		v1.LogoutRoute, s.handleLogout)
	addRoute(s.protected, http.MethodPost, v1.APIVersionPrefix,
		v1.DraftNewRoute, s.handleDraftNew)
	addRoute(s.protected, http.MethodPost, v1.APIVersionPrefix,
		v1.DraftsClearRoute, s.handleDraftsClear)
}

// addRoute adds a route to the provided router.
func addRoute(router *mux.Router, method string, routePrefix, route string, handler http.HandlerFunc) {
	router.HandleFunc(routePrefix+route, handler).Methods(method)
}

// generateHTTPSCertPair generates an HTTPS cert and key if they don't already
// exist.
func generateHTTPSCertPair(httpsCert, httpsKey string) error {
	switch {
	case util.FileExists(httpsCert) && util.FileExists(httpsKey):
		// The cert and key already exist. Nothing to do.
		return nil

	case !util.FileExists(httpsCert) && util.FileExists(httpsKey):
		return fmt.Errorf("https key exists (%v) but the cert doesn't (%v)",
			httpsKey, httpsCert)

	case util.FileExists(httpsCert) && !util.FileExists(httpsKey):
		return fmt.Errorf("https cert exists (%v) but the key doesn't (%v)",
			httpsCert, httpsKey)
	}

	log.Infof("Generating HTTPS cert pair %v %v", httpsCert, httpsKey)

	err := util.GenCertPair(elliptic.P256(), "stashd", httpsCert, httpsKey)
	if err != nil {
		return fmt.Errorf("gen cert pair failed: %v", err)
	}

	return nil
}

// loadKey loads a random key from disk. If the key does not exist, a new one
// is created and saved to disk.
func loadKey(name, keyFile string) ([]byte, error) {
	const keyLength = 32 // In bytes

	key, err := os.ReadFile(keyFile)
	if err != nil {
		log.Infof("%v key not found; generating one", name)
		key, err = util.Random(keyLength)
		if err != nil {
			return nil, err
		}
		err = os.WriteFile(keyFile, key, 0400)
		if err != nil {
			return nil, err
		}
		log.Infof("%v key saved to %v", name, keyFile)
	}

	if len(key) != keyLength {
		return nil, errors.Errorf("%v key is corrupt", name)
	}

	return key, nil
}

// loadCSRFKey loads the CSRF key from disk.
func loadCSRFKey(csrfKeyFile string) ([]byte, error) {
	return loadKey("CSRF", csrfKeyFile)
}

// loadSessionKey loads the session key from disk.
func loadSessionKey(sessionKeyFile string) ([]byte, error) {
	return loadKey("Session", sessionKeyFile)
}
