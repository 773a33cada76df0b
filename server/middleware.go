// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"time"

	"github.com/decred/sessionstash/logger"
	v1 "github.com/decred/sessionstash/server/api/v1"
	"github.com/decred/sessionstash/stash"
	"github.com/decred/sessionstash/util"
)

// middleware contains the middleware that use configurable settings.
type middleware struct {
	reqBodySizeLimit int64 // In bytes
}

// reqBodySizeLimitMiddleware applies a maximum request body size limit to
// requests.
//
// NOTE: This will only cause an error if the request body is read by the
// request handler, e.g. the JSON from a POST request is decoded into a struct.
func (m *middleware) reqBodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, m.reqBodySizeLimit)
		next.ServeHTTP(w, r)
	})
}

// closeBodyMiddleware closes the request body.
func closeBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		r.Body.Close()
	})
}

// loggingMiddleware logs all incoming commands before calling the next
// handler.
//
// NOTE: LOGGING WILL LOG PASSWORDS IF TRACING IS ENABLED.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Trace incoming request
		log.Tracef("%v", logger.NewLogClosure(func() string {
			trace, err := httputil.DumpRequest(r, true)
			if err != nil {
				trace = []byte(fmt.Sprintf("logging: "+
					"DumpRequest %v", err))
			}
			return string(trace)
		}))

		// Log incoming connection
		log.Infof("%v %v %v %v", util.RemoteAddr(r), r.Method, r.URL, r.Proto)

		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware recovers from any panics by logging the panic and
// returning a 500 response.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				errorCode := time.Now().Unix()
				log.Criticalf("%v %v %v %v Internal error %v: %v",
					util.RemoteAddr(r), r.Method, r.URL, r.Proto, errorCode, err)
				log.Criticalf("Stacktrace (THIS IS AN ACTUAL PANIC): %s",
					debug.Stack())

				util.RespondWithJSON(w, http.StatusInternalServerError,
					v1.InternalError{
						ErrorCode: errorCode,
					})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// stashContextMiddleware adds the stash render values of the session to the
// request context. The request proceeds without them if the session cannot
// be read.
func (s *Server) stashContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sn, err := s.extractSession(r)
		if err != nil {
			log.Errorf("%v stashContextMiddleware: %v", util.RemoteAddr(r), err)
			next.ServeHTTP(w, r)
			return
		}
		values := s.stash.ContextValues(newStashRequest(sn))
		next.ServeHTTP(w, r.WithContext(stash.NewContext(r.Context(), values)))
	})
}
