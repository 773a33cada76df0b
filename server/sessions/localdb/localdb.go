// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/decred/sessionstash/server/sessions"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// sessionPrefix is the key prefix of session records.
	sessionPrefix = "session-"
)

var (
	_ sessions.DB      = (*localdb)(nil)
	_ sessions.Cleaner = (*localdb)(nil)

	// errShutdown is returned when the database is used after Close.
	errShutdown = errors.New("database is shutdown")
)

// localdb implements the sessions.DB interface using a leveldb database. It
// is intended for single node deployments and testing.
type localdb struct {
	sync.RWMutex

	shutdown bool        // Backend is shutdown
	db       *leveldb.DB // Database context

	// sessionMaxAge is the max age of a session in seconds.
	sessionMaxAge int64
}

// session is the record that is saved to the database.
type session struct {
	EncodedSession sessions.EncodedSession `json:"encodedsession"`
	CreatedAt      int64                   `json:"createdat"` // Unix timestamp
}

func sessionKey(sessionID string) []byte {
	return []byte(sessionPrefix + sessionID)
}

// get returns the session record for the key.
//
// This function must be called with the lock held.
func (l *localdb) get(key []byte) (*session, error) {
	b, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, sessions.ErrNotFound
		}
		return nil, errors.WithStack(err)
	}
	var s session
	err = json.Unmarshal(b, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save saves a session to the database. The creation time of an existing
// session is left untouched.
//
// Save satisfies the sessions.DB interface.
func (l *localdb) Save(sessionID string, es sessions.EncodedSession) error {
	log.Tracef("Save: %v", sessionID)

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return errShutdown
	}

	key := sessionKey(sessionID)
	createdAt := time.Now().Unix()
	s, err := l.get(key)
	switch {
	case err == nil:
		createdAt = s.CreatedAt
	case errors.Is(err, sessions.ErrNotFound):
		// New session
	default:
		return err
	}

	b, err := json.Marshal(session{
		EncodedSession: es,
		CreatedAt:      createdAt,
	})
	if err != nil {
		return err
	}
	err = l.db.Put(key, b, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Get returns a session from the database. A sessions.ErrNotFound error is
// returned if the session does not exist or has expired.
//
// Get satisfies the sessions.DB interface.
func (l *localdb) Get(sessionID string) (*sessions.EncodedSession, error) {
	log.Tracef("Get: %v", sessionID)

	l.RLock()
	defer l.RUnlock()

	if l.shutdown {
		return nil, errShutdown
	}

	s, err := l.get(sessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	if sessions.Expired(s.CreatedAt, l.sessionMaxAge, time.Now()) {
		log.Debugf("Session %v expired", sessionID)
		return nil, sessions.ErrNotFound
	}

	return &s.EncodedSession, nil
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions.DB interface.
func (l *localdb) Del(sessionID string) error {
	log.Tracef("Del: %v", sessionID)

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return errShutdown
	}

	err := l.db.Delete(sessionKey(sessionID), nil)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Cleanup deletes all sessions that have expired.
//
// Cleanup satisfies the sessions.Cleaner interface.
func (l *localdb) Cleanup() error {
	log.Tracef("Cleanup")

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return errShutdown
	}

	var (
		now   = time.Now()
		batch = new(leveldb.Batch)
	)
	iter := l.db.NewIterator(util.BytesPrefix([]byte(sessionPrefix)), nil)
	for iter.Next() {
		var s session
		err := json.Unmarshal(iter.Value(), &s)
		if err != nil {
			iter.Release()
			return err
		}
		if sessions.Expired(s.CreatedAt, l.sessionMaxAge, now) {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.WithStack(err)
	}

	err := l.db.Write(batch, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Debugf("Deleted %v expired sessions from the database", batch.Len())

	return nil
}

// Close shuts down the database.
func (l *localdb) Close() error {
	log.Tracef("Close")

	l.Lock()
	defer l.Unlock()

	l.shutdown = true
	return l.db.Close()
}

// New opens the leveldb database at the provided path, creating it if it
// does not exist, and removes any expired sessions.
func New(path string, sessionMaxAge int64) (*localdb, error) {
	log.Tracef("New: %v", path)

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	l := &localdb{
		db:            db,
		sessionMaxAge: sessionMaxAge,
	}
	err = l.Cleanup()
	if err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}
