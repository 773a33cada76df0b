// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/decred/sessionstash/drafts"
	"github.com/decred/sessionstash/logger"
	v1 "github.com/decred/sessionstash/server/api/v1"
	"github.com/decred/sessionstash/stash"
	"github.com/decred/sessionstash/util"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// handleNotFound handles all invalid routes and returns a 404 to the client.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	// Log incoming connection
	log.Debugf("Invalid route: %v %v %v %v",
		util.RemoteAddr(r), r.Method, r.URL, r.Proto)

	// Trace incoming request
	log.Tracef("%v", logger.NewLogClosure(func() string {
		trace, err := httputil.DumpRequest(r, true)
		if err != nil {
			trace = []byte(fmt.Sprintf("handleNotFound: DumpRequest %v", err))
		}
		return string(trace)
	}))

	util.RespondWithJSON(w, http.StatusNotFound, nil)
}

// handleCSRFError is called by the CSRF middleware when a request to a
// protected route does not carry valid CSRF tokens.
func handleCSRFError(w http.ResponseWriter, r *http.Request) {
	log.Infof("%v CSRF failure %v %v: %v",
		util.RemoteAddr(r), r.Method, r.URL, csrf.FailureReason(r))

	util.RespondWithError(w, http.StatusForbidden,
		http.StatusText(http.StatusForbidden))
}

// handleVersion is the request handler for the http v1 VersionRoute.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVersion")

	// Set the CSRF header. This is the only route
	// that sets the CSRF header.
	w.Header().Set(v1.CSRFTokenHeader, csrf.Token(r))

	vr := v1.VersionReply{
		BuildVersion: s.cfg.BuildVersion,
		APIVersion:   v1.APIVersion,
		StashVersion: stash.Version,
	}

	respondWithOK(w, vr)
}

// handlePolicy is the request handler for the http v1 PolicyRoute.
func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handlePolicy")

	pr := v1.PolicyReply{
		SessionMaxAge:     s.cfg.SessionMaxAge,
		TitleLengthMax:    drafts.TitleLengthMax,
		BodyLengthMax:     drafts.BodyLengthMax,
		UsernameLengthMin: drafts.UsernameLengthMin,
		UsernameLengthMax: drafts.UsernameLengthMax,
		PasswordLengthMin: drafts.PasswordLengthMin,
	}

	respondWithOK(w, pr)
}

// handleUserNew is the request handler for the http v1 UserNewRoute.
func (s *Server) handleUserNew(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleUserNew")

	var un v1.UserNew
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&un); err != nil {
		respondWithUserError(w, r, v1.ErrCodeInvalidInput, "")
		return
	}

	u, err := s.drafts.UserNew(un.Username, un.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithOK(w, v1.UserNewReply{
		UserID: u.ID.String(),
	})
}

// handleLogin is the request handler for the http v1 LoginRoute. The drafts
// that were stashed in the session are given to the user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogin")

	var l v1.Login
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&l); err != nil {
		respondWithUserError(w, r, v1.ErrCodeInvalidInput, "")
		return
	}

	u, err := s.drafts.UserLogin(l.Username, l.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	sr := newStashRequest(sn)
	sr.login(u.ID)

	claimed, err := s.drafts.Drafts.ReparentAll(sr.Session(), u.ID)
	if err != nil {
		// The login still succeeds. The stash list is kept so the
		// drafts can be claimed on the next login.
		log.Errorf("%v ReparentAll %v: %v", util.RemoteAddr(r), u.ID, err)
	}

	// The login must be persisted for the response to be valid
	err = s.saveSession(w, r, sn, sr)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}

	log.Infof("%v Login %v %v claimed %v drafts",
		util.RemoteAddr(r), u.ID, u.Username, claimed)

	respondWithOK(w, v1.LoginReply{
		UserID:   u.ID.String(),
		Username: u.Username,
		Claimed:  claimed,
	})
}

// handleLogout is the request handler for the http v1 LogoutRoute. The
// session is deleted, including any stash that it carries.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogout")

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	if _, ok := newStashRequest(sn).UserID(); !ok {
		respondWithUserError(w, r, v1.ErrCodeNotLoggedIn, "")
		return
	}

	sn.Options.MaxAge = -1
	err = s.sessions.Save(r, w, sn)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}

	respondWithOK(w, v1.LogoutReply{})
}

// handleDraftNew is the request handler for the http v1 DraftNewRoute.
func (s *Server) handleDraftNew(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDraftNew")

	var dn v1.DraftNew
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&dn); err != nil {
		respondWithUserError(w, r, v1.ErrCodeInvalidInput, "")
		return
	}

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	sr := newStashRequest(sn)

	// Logged in users own their drafts. Anonymous drafts are
	// stashed in the session.
	var owner *uuid.UUID
	if userID, ok := sr.UserID(); ok {
		owner = &userID
	}
	dr, err := s.drafts.DraftNew(dn.Title, dn.Body, owner)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	// An anonymous draft that does not make it into a saved stash has no
	// owner and can not be reached by anyone.
	res, err := s.drafts.Drafts.Stash(sr.Session(), *dr)
	if err != nil {
		log.Errorf("%v Orphaned draft %v: stash: %v",
			util.RemoteAddr(r), dr.ID, err)
		respondWithInternalError(w, r, err)
		return
	}
	err = s.saveSession(w, r, sn, sr)
	if err != nil {
		if owner == nil {
			log.Errorf("%v Orphaned draft %v: save session: %v",
				util.RemoteAddr(r), dr.ID, err)
		}
		respondWithInternalError(w, r, err)
		return
	}

	log.Debugf("%v Draft %v %v", util.RemoteAddr(r), dr.ID, res)

	respondWithOK(w, v1.DraftNewReply{
		Draft: convertDraft(*dr, res == stash.ResultStashed, true),
	})
}

// handleDrafts is the request handler for the http v1 DraftsRoute. It
// returns the drafts that the requester can act on.
func (s *Server) handleDrafts(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDrafts")

	var d v1.Drafts
	err := util.ParseGetParams(r, &d)
	if err != nil {
		respondWithUserError(w, r, v1.ErrCodeInvalidInput, err.Error())
		return
	}

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	sr := newStashRequest(sn)

	drs, err := s.drafts.Drafts.Visible(sr)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}

	// The stash counts are added to the request context by the
	// stash context middleware.
	values, ok := stash.FromContext(r.Context())
	if !ok {
		values = s.stash.ContextValues(sr)
	}

	ds := make([]v1.Draft, 0, len(drs))
	for _, dr := range drs {
		stashed := s.drafts.Drafts.IsStashed(sr.Session(), dr)
		ds = append(ds, convertDraft(dr, stashed, d.Bodies))
	}

	respondWithOK(w, v1.DraftsReply{
		Drafts:  ds,
		Context: values,
	})
}

// handleDraft is the request handler for the http v1 DraftRoute. A draft is
// only returned to its owner or to the session that stashed it.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDraft")

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithUserError(w, r, v1.ErrCodeInvalidInput, "invalid id")
		return
	}

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	sr := newStashRequest(sn)

	dr, err := s.drafts.DraftByID(id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var (
		stashed = s.drafts.Drafts.IsStashed(sr.Session(), *dr)
		owned   bool
	)
	if userID, ok := sr.UserID(); ok && dr.CreatedBy != nil {
		owned = *dr.CreatedBy == userID
	}
	if !owned && !stashed {
		respondWithUserError(w, r, v1.ErrCodeDraftNotFound, "")
		return
	}

	respondWithOK(w, v1.DraftReply{
		Draft: convertDraft(*dr, stashed, true),
	})
}

// handleDraftsClear is the request handler for the http v1 DraftsClearRoute.
func (s *Server) handleDraftsClear(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDraftsClear")

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}
	sr := newStashRequest(sn)

	s.drafts.Drafts.Clear(sr.Session())

	err = s.saveSession(w, r, sn, sr)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}

	respondWithOK(w, v1.DraftsClearReply{})
}

// handleStashCounts is the request handler for the http v1 StashCountsRoute.
// Unavailable counts are left out of the reply.
func (s *Server) handleStashCounts(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleStashCounts")

	sn, err := s.extractSession(r)
	if err != nil {
		respondWithInternalError(w, r, err)
		return
	}

	counts, err := s.stash.Counts(newStashRequest(sn).Session())
	if err != nil {
		log.Warnf("%v Counts: %v", util.RemoteAddr(r), err)
	}

	respondWithOK(w, v1.StashCountsReply{
		Counts: counts,
	})
}

// convertDraft converts a database draft to a v1 draft.
func convertDraft(d drafts.Draft, stashed, body bool) v1.Draft {
	var createdBy string
	if d.CreatedBy != nil {
		createdBy = d.CreatedBy.String()
	}
	dr := v1.Draft{
		ID:        d.ID,
		Title:     d.Title,
		CreatedBy: createdBy,
		CreatedAt: d.CreatedAt.Unix(),
		Stashed:   stashed,
	}
	if body {
		dr.Body = d.Body
	}
	return dr
}

// errCodes maps the drafts database errors to the v1 user error codes.
var errCodes = map[error]v1.ErrCode{
	drafts.ErrInvalidTitle:    v1.ErrCodeInvalidTitle,
	drafts.ErrInvalidBody:     v1.ErrCodeInvalidBody,
	drafts.ErrInvalidUsername: v1.ErrCodeInvalidUsername,
	drafts.ErrInvalidPassword: v1.ErrCodeInvalidPassword,
	drafts.ErrUserExists:      v1.ErrCodeUserExists,
	drafts.ErrLoginFailed:     v1.ErrCodeLoginFailed,
	drafts.ErrDraftNotFound:   v1.ErrCodeDraftNotFound,
}

// respondWithError responds with a user error if the error is a drafts
// database user error and with an internal error otherwise.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	for e, c := range errCodes {
		if errors.Is(err, e) {
			respondWithUserError(w, r, c, "")
			return
		}
	}
	respondWithInternalError(w, r, err)
}

// respondWithOK responses to the client request with a 200 http status code
// and the JSON encoded body.
func respondWithOK(w http.ResponseWriter, body interface{}) {
	util.RespondWithJSON(w, http.StatusOK, body)
}

// respondWithUserError responds to the client request with a 400 http status
// code and a JSON encoded v1 UserError in the response body.
func respondWithUserError(w http.ResponseWriter, r *http.Request, errCode v1.ErrCode, errContext string) {
	m := fmt.Sprintf("%v User error: %v %v",
		util.RemoteAddr(r), errCode, v1.ErrCodes[errCode])
	if errContext != "" {
		m += fmt.Sprintf(" - %v", errContext)
	}
	log.Infof(m)

	util.RespondWithJSON(w, http.StatusBadRequest,
		v1.UserError{
			ErrorCode:    errCode,
			ErrorContext: errContext,
		})
}

// respondWithInternalError responds to the client request with a 500 http
// status code and a JSON encoded v1 InternalError in the response body.
func respondWithInternalError(w http.ResponseWriter, r *http.Request, err error) {
	// Check if the client dropped the connection. There
	// is no need to send a response if the client dropped
	// the connection.
	if err := r.Context().Err(); err == context.Canceled {
		log.Infof("%v %v %v %v client aborted connection",
			util.RemoteAddr(r), r.Method, r.URL, r.Proto)
		return
	}

	// Log an internal server error
	t := time.Now().Unix()
	e := fmt.Sprintf("%v %v %v %v Internal error %v: %v",
		util.RemoteAddr(r), r.Method, r.URL, r.Proto, t, err)

	// If this is a pkg/errors error then we can pull the
	// stack trace out of the error.
	stack, ok := util.StackTrace(err)
	if ok {
		e += fmt.Sprintf("\nInternal error stacktrace (NOT A PANIC): %v", stack)
	}

	log.Error(e)

	util.RespondWithJSON(w, http.StatusInternalServerError,
		v1.InternalError{
			ErrorCode: t,
		})
}
