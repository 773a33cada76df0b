// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"net/http"

	v1 "github.com/decred/sessionstash/server/api/v1"
	"github.com/decred/sessionstash/stash"
	"github.com/decred/sessionstash/util"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

const (
	// sessionValueUserID is the session value key of the logged in user ID.
	sessionValueUserID = "user_id"
)

var (
	_ stash.Request = (*stashRequest)(nil)
)

// extractSession returns the session of the request. A new session is
// returned when the session cookie cannot be decoded, e.g. after a session
// key rotation.
func (s *Server) extractSession(r *http.Request) (*sessions.Session, error) {
	sn, err := s.sessions.Get(r, v1.SessionCookieName)
	if err != nil {
		var e securecookie.Error
		if sn == nil || !errors.As(err, &e) || !e.IsDecode() {
			return nil, err
		}
		log.Debugf("%v Invalid session cookie: %v", util.RemoteAddr(r), err)
	}
	return sn, nil
}

// stashRequest is the view of a request that the stash operates on.
type stashRequest struct {
	values *stash.Values
	userID *uuid.UUID
}

// newStashRequest returns the stash request of a session. The user ID session
// value is ignored if it cannot be parsed.
func newStashRequest(sn *sessions.Session) *stashRequest {
	sr := stashRequest{
		values: stash.NewValues(sn.Values),
	}
	id, ok := sn.Values[sessionValueUserID].(string)
	if !ok {
		return &sr
	}
	u, err := uuid.Parse(id)
	if err != nil {
		log.Warnf("Invalid session user ID %q: %v", id, err)
		return &sr
	}
	sr.userID = &u
	return &sr
}

// Session returns the session values.
//
// This function satisfies the stash.Request interface.
func (r *stashRequest) Session() stash.Session {
	return r.values
}

// UserID returns the logged in user.
//
// This function satisfies the stash.Request interface.
func (r *stashRequest) UserID() (uuid.UUID, bool) {
	if r.userID == nil {
		return uuid.UUID{}, false
	}
	return *r.userID, true
}

// login sets the logged in user of the session.
func (r *stashRequest) login(userID uuid.UUID) {
	r.values.SetValue(sessionValueUserID, userID.String())
	r.values.SetModified()
	r.userID = &userID
}

// saveSession saves the session if any of its values were modified. Anonymous
// sessions are saved too since they carry the stash.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sn *sessions.Session, sr *stashRequest) error {
	if !sr.values.Modified() {
		return nil
	}
	return s.sessions.Save(r, w, sn)
}
