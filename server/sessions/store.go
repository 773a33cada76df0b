// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"encoding/base32"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

var (
	_ sessions.Store = (*Store)(nil)
)

// Store is a gorilla/sessions Store that is backed by a DB.
//
// Store impelements the sessions.Store interface.
type Store struct {
	codecs  []securecookie.Codec
	options *sessions.Options
	db      DB
}

// NewStore returns a new Store.
//
// Keys are defined in pairs to allow key rotation, but the common case is
// to set a single authentication key and optionally an encryption key.
//
// The first key in a pair is used for authentication and the second for
// encryption. The encryption key can be set to nil or omitted in the last
// pair, but the authentication key is required in all pairs.
//
// It is recommended to use an authentication key with 32 or 64 bytes.
// The encryption key, if set, must be either 16, 24, or 32 bytes to select
// AES-128, AES-192, or AES-256 modes.
func NewStore(db DB, opts *sessions.Options, keyPairs ...[]byte) *Store {
	// Set the maxAge for each securecookie instance
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, codec := range codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}

	return &Store{
		codecs:  codecs,
		options: opts,
		db:      db,
	}
}

// Get returns a session for the given name after adding it to the registry.
//
// A new session is returned if the given session doesn't exist. Access IsNew
// on the session to check if it is an existing session or a new one. The new
// session will not have any sessions values set and will not have been saved
// to the database yet.
//
// Get returns a new session and an error if the session exists but could not
// be decoded.
//
// This function satisfies the sessions.Store interface.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	log.Tracef("Get: %v", name)

	return sessions.GetRegistry(r).Get(s, name)
}

// New returns a session for the given name without adding it to the registry.
//
// The sessions.Store interface dictates that New() should never return a nil
// session, even in the case of an error if using the Registry infrastructure
// to cache the session.
//
// The difference between New() and Get() is that calling New() twice will
// decode the session data twice, while Get() registers and reuses the same
// decoded session after the first call.
//
// This function satisfies the sessions.Store interface.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	log.Tracef("New: %v", name)

	// Setup new session
	session := sessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true
	session.ID = newSessionID()

	// Check if the session cookie already exists
	c, err := r.Cookie(name)
	if err == http.ErrNoCookie {
		// Session cookie does not exist. Return a new session.
		return session, nil
	} else if err != nil {
		return session, errors.WithStack(err)
	}

	// Session cookie already exists. The encoded session ID travels in
	// the cookie. Decode it and use it to check if the session exists
	// in the database.
	var sessionID string
	err = securecookie.DecodeMulti(name, c.Value, &sessionID, s.codecs...)
	if err != nil {
		return session, errors.WithStack(err)
	}

	// Check if session exists in the database
	es, err := s.db.Get(sessionID)
	switch {
	case err == nil:
		// Session found in the database. Decode the database session
		// values into the session being returned.
		err = securecookie.DecodeMulti(name, es.Values,
			&session.Values, s.codecs...)
		if err != nil {
			return session, errors.WithStack(err)
		}
		session.ID = sessionID
		session.IsNew = false

	case errors.Is(err, ErrNotFound):
		// Session not found in the database. The session has either
		// expired or been deleted. A new session is returned.
		log.Debugf("Session not found %v", sessionID)

	default:
		return session, err
	}

	return session, nil
}

// Save saves the session to the database and updates the http response cookie
// with the encoded session ID.
//
// If the Options.MaxAge of the session is <= 0 then the session will be
// deleted from the database. With this process it enforces proper session
// cookie handling so no need to trust in the cookie management in the web
// browser.
//
// Anonymous sessions are saved the same as authenticated ones.
//
// This function satisfies the sessions.Store interface.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	log.Tracef("Save: %v", session.ID)

	// Delete session if max-age is <= 0
	if session.Options.MaxAge <= 0 {
		err := s.db.Del(session.ID)
		if err != nil {
			return err
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	// Save the encoded session values to the database
	encodedValues, err := securecookie.EncodeMulti(session.Name(),
		session.Values, s.codecs...)
	if err != nil {
		return errors.WithStack(err)
	}
	err = s.db.Save(session.ID, EncodedSession{
		Values: encodedValues,
	})
	if err != nil {
		return err
	}

	// Update session cookie with encoded session ID
	encodedID, err := securecookie.EncodeMulti(session.Name(), session.ID,
		s.codecs...)
	if err != nil {
		return errors.WithStack(err)
	}
	c := sessions.NewCookie(session.Name(), encodedID, session.Options)
	http.SetCookie(w, c)

	return nil
}

// NewOptions returns the default session options for the provided max age.
func NewOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// newSessionID returns a new session ID. A session ID is defined as a 32 byte
// base32 string with padding. The session ID is set by the store and can be
// whatever the store chooses. This ID was chosen simply because it's what the
// gorilla/sesssions package reference implemenation uses.
func newSessionID() string {
	return base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
}
