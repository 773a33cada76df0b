// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mysql implements the sessions.DB interface on top of a MySQL
// database/sql connection.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/decred/sessionstash/server/sessions"
	"github.com/pkg/errors"
)

const (
	// defaultTableName is the default name of the sessions table.
	defaultTableName = "sessions"

	// defaultOpTimeout is the default timeout of a single query.
	defaultOpTimeout = 1 * time.Minute
)

// Queries of the sessions table. The table name is filled in by newQueries.
//
// The id column holds the base32 session ID generated by the session Store.
// The encoded_session column is a JSON sessions.EncodedSession, which carries
// the securecookie encoded values of both logged in and anonymous sessions,
// stash lists included. created_at is a Unix timestamp that is only written
// on insert, so a session expires max age seconds after it was first saved,
// the same as its cookie.
const (
	qCreate = `CREATE TABLE IF NOT EXISTS %v (
  id              CHAR(128) PRIMARY KEY,
  encoded_session BLOB NOT NULL,
  created_at      BIGINT NOT NULL
)`
	qDrop   = `DROP TABLE IF EXISTS %v`
	qUpsert = `INSERT INTO %v (id, encoded_session, created_at)
  VALUES (?, ?, ?)
  ON DUPLICATE KEY UPDATE encoded_session = VALUES(encoded_session)`
	qSelect  = `SELECT encoded_session, created_at FROM %v WHERE id = ?`
	qDelete  = `DELETE FROM %v WHERE id = ?`
	qExpired = `DELETE FROM %v WHERE created_at + ? <= ?`
)

// queries holds the sessions table queries with the table name applied.
type queries struct {
	create  string
	drop    string
	upsert  string
	get     string
	del     string
	expired string
}

func newQueries(table string) queries {
	return queries{
		create:  fmt.Sprintf(qCreate, table),
		drop:    fmt.Sprintf(qDrop, table),
		upsert:  fmt.Sprintf(qUpsert, table),
		get:     fmt.Sprintf(qSelect, table),
		del:     fmt.Sprintf(qDelete, table),
		expired: fmt.Sprintf(qExpired, table),
	}
}

var (
	_ sessions.DB      = (*mysql)(nil)
	_ sessions.Cleaner = (*mysql)(nil)
)

// mysql is a sessions database backed by a MySQL table. Sessions older than
// maxAge are never returned, and Cleanup removes them from the table.
type mysql struct {
	db      *sql.DB
	q       queries
	maxAge  int64 // Seconds
	timeout time.Duration

	// now returns the current time. It is replaced in tests.
	now func() time.Time
}

// Opts contains the optional settings of the sessions database.
type Opts struct {
	// TableName is the name of the sessions table.
	TableName string

	// OpTimeout is the timeout of a single query.
	OpTimeout time.Duration
}

// New returns a MySQL sessions database that uses the provided connection.
// The sessions table is created if it does not exist and expired sessions
// are removed. A sessionMaxAge of zero or less drops the table first, since
// every existing session would already be expired. opts may be nil.
func New(db *sql.DB, sessionMaxAge int64, opts *Opts) (*mysql, error) {
	var o Opts
	if opts != nil {
		o = *opts
	}
	if o.TableName == "" {
		o.TableName = defaultTableName
	}
	if o.OpTimeout == 0 {
		o.OpTimeout = defaultOpTimeout
	}

	m := &mysql{
		db:      db,
		q:       newQueries(o.TableName),
		maxAge:  sessionMaxAge,
		timeout: o.OpTimeout,
		now:     time.Now,
	}

	if sessionMaxAge <= 0 {
		err := m.exec(m.q.drop)
		if err != nil {
			return nil, err
		}
		log.Debugf("Dropped sessions table %v", o.TableName)
	}
	err := m.exec(m.q.create)
	if err != nil {
		return nil, err
	}
	err = m.Cleanup()
	if err != nil {
		return nil, err
	}

	return m, nil
}

// exec runs a statement that returns no rows.
func (m *mysql) exec(q string, args ...interface{}) error {
	ctx, cancel := m.ctx()
	defer cancel()

	_, err := m.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ctx returns the context of a single query.
func (m *mysql) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// Save inserts a session or replaces the values of an existing one. The
// creation time of an existing session is left untouched.
//
// Save satisfies the sessions.DB interface.
func (m *mysql) Save(sessionID string, es sessions.EncodedSession) error {
	log.Tracef("Save: %v", sessionID)

	b, err := json.Marshal(es)
	if err != nil {
		return err
	}

	return m.exec(m.q.upsert, sessionID, b, m.now().Unix())
}

// Del deletes a session. An error is not returned if the session does not
// exist.
//
// Del satisfies the sessions.DB interface.
func (m *mysql) Del(sessionID string) error {
	log.Tracef("Del: %v", sessionID)

	return m.exec(m.q.del, sessionID)
}

// Get returns a session. A sessions.ErrNotFound error is returned if the
// session does not exist or has expired. An expired row stays in the table
// until the next Cleanup.
//
// Get satisfies the sessions.DB interface.
func (m *mysql) Get(sessionID string) (*sessions.EncodedSession, error) {
	log.Tracef("Get: %v", sessionID)

	ctx, cancel := m.ctx()
	defer cancel()

	var (
		b         []byte
		createdAt int64
	)
	err := m.db.QueryRowContext(ctx, m.q.get, sessionID).Scan(&b, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, sessions.ErrNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}

	if sessions.Expired(createdAt, m.maxAge, m.now()) {
		log.Debugf("Session %v expired", sessionID)
		return nil, sessions.ErrNotFound
	}

	var es sessions.EncodedSession
	err = json.Unmarshal(b, &es)
	if err != nil {
		return nil, err
	}

	return &es, nil
}

// Cleanup deletes all expired sessions.
//
// Cleanup satisfies the sessions.Cleaner interface.
func (m *mysql) Cleanup() error {
	log.Tracef("Cleanup")

	ctx, cancel := m.ctx()
	defer cancel()

	r, err := m.db.ExecContext(ctx, m.q.expired, m.maxAge, m.now().Unix())
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}

	log.Debugf("Deleted %v expired sessions", n)

	return nil
}
