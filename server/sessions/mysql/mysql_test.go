// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/decred/sessionstash/server/sessions"
)

const testMaxAge = 60

// testNow is the fixed clock of the test database.
var testNow = time.Unix(1700000000, 0)

// newTestMySQL returns a mysql context that has been setup for testing along
// with the sql mocking context and a cleanup function. Invocation of the
// cleanup function should be deferred by the caller.
func newTestMySQL(t *testing.T) (*mysql, sqlmock.Sqlmock, func()) {
	t.Helper()

	// QueryMatcherEqual does a full case sensitive match instead of
	// treating the expected SQL as a regular expression.
	opts := sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual)
	db, mock, err := sqlmock.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	m := &mysql{
		db:      db,
		q:       newQueries(defaultTableName),
		maxAge:  testMaxAge,
		timeout: defaultOpTimeout,
		now: func() time.Time {
			return testNow
		},
	}

	return m, mock, func() {
		db.Close()
	}
}

// AnyInt64 can be passed in as a sqlmock prepared statement argument when the
// caller knows that the argument will be an int64, but does not know what the
// exact value of the int64 will be.
type AnyInt64 struct{}

// Match satisfies sqlmock Argument interface.
func (a AnyInt64) Match(v driver.Value) bool {
	_, ok := v.(int64)
	return ok
}

func TestNew(t *testing.T) {
	opts := sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual)
	db, mock, err := sqlmock.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	q := newQueries("stash_sessions")

	// The table is created and expired sessions are removed
	mock.ExpectExec(q.create).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.expired).
		WithArgs(int64(testMaxAge), AnyInt64{}).
		WillReturnResult(sqlmock.NewResult(0, 3))

	m, err := New(db, testMaxAge, &Opts{TableName: "stash_sessions"})
	if err != nil {
		t.Fatal(err)
	}
	if m.timeout != defaultOpTimeout {
		t.Errorf("got op timeout %v, want %v", m.timeout, defaultOpTimeout)
	}

	// A max age of zero drops the table first
	mock.ExpectExec(q.drop).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.create).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.expired).
		WithArgs(int64(0), AnyInt64{}).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = New(db, 0, &Opts{TableName: "stash_sessions"})
	if err != nil {
		t.Fatal(err)
	}

	// The default table name is used without options
	d := newQueries(defaultTableName)
	mock.ExpectExec(d.create).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(d.expired).
		WithArgs(int64(testMaxAge), AnyInt64{}).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = New(db, testMaxAge, nil)
	if err != nil {
		t.Fatal(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestSave(t *testing.T) {
	m, mock, cleanup := newTestMySQL(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		es        = sessions.EncodedSession{Values: "test-values"}
	)
	esB, err := json.Marshal(es)
	if err != nil {
		t.Fatal(err)
	}

	// Test the unexpected error path
	unexpectedErr := errors.New("unexpected error")
	mock.ExpectExec(m.q.upsert).
		WithArgs(sessionID, esB, testNow.Unix()).
		WillReturnError(unexpectedErr)

	err = m.Save(sessionID, es)
	if !errors.Is(err, unexpectedErr) {
		t.Errorf("got err '%v', want '%v'", err, unexpectedErr)
	}

	// Test the success path
	mock.ExpectExec(m.q.upsert).
		WithArgs(sessionID, esB, testNow.Unix()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = m.Save(sessionID, es)
	if err != nil {
		t.Error(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestDel(t *testing.T) {
	m, mock, cleanup := newTestMySQL(t)
	defer cleanup()

	sessionID := "test-session-id"

	// Test the unexpected error path
	unexpectedErr := errors.New("unexpected error")
	mock.ExpectExec(m.q.del).
		WithArgs(sessionID).
		WillReturnError(unexpectedErr)

	err := m.Del(sessionID)
	if !errors.Is(err, unexpectedErr) {
		t.Errorf("got err '%v', want '%v'", err, unexpectedErr)
	}

	// Test the success path
	mock.ExpectExec(m.q.del).
		WithArgs(sessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = m.Del(sessionID)
	if err != nil {
		t.Error(err)
	}
}

func TestGet(t *testing.T) {
	m, mock, cleanup := newTestMySQL(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		es        = sessions.EncodedSession{Values: "test-values"}
		columns   = []string{"encoded_session", "created_at"}
	)
	esB, err := json.Marshal(es)
	if err != nil {
		t.Fatal(err)
	}

	// Test the not found error path
	mock.ExpectQuery(m.q.get).
		WithArgs(sessionID).
		WillReturnError(sql.ErrNoRows)

	_, err = m.Get(sessionID)
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}

	// Test the unexpected error path
	unexpectedErr := errors.New("unexpected error")
	mock.ExpectQuery(m.q.get).
		WithArgs(sessionID).
		WillReturnError(unexpectedErr)

	_, err = m.Get(sessionID)
	if !errors.Is(err, unexpectedErr) {
		t.Errorf("got err '%v', want '%v'", err, unexpectedErr)
	}

	// Test the success path
	rows := sqlmock.NewRows(columns).
		AddRow(esB, testNow.Unix()-testMaxAge+1)
	mock.ExpectQuery(m.q.get).
		WithArgs(sessionID).
		WillReturnRows(rows)

	r, err := m.Get(sessionID)
	switch {
	case err != nil:
		t.Error(err)
	case r == nil:
		t.Errorf("got nil session, want %+v", es)
	case r.Values != es.Values:
		t.Errorf("got session values '%v', want '%v'", r.Values, es.Values)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestGetExpired(t *testing.T) {
	m, mock, cleanup := newTestMySQL(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		columns   = []string{"encoded_session", "created_at"}
	)
	esB, err := json.Marshal(sessions.EncodedSession{Values: "stale"})
	if err != nil {
		t.Fatal(err)
	}

	var tests = []struct {
		name      string
		createdAt int64
	}{
		{"exactly max age", testNow.Unix() - testMaxAge},
		{"past max age", testNow.Unix() - 10*testMaxAge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// The row is still in the table because Cleanup has
			// not run yet.
			rows := sqlmock.NewRows(columns).AddRow(esB, tc.createdAt)
			mock.ExpectQuery(m.q.get).
				WithArgs(sessionID).
				WillReturnRows(rows)

			r, err := m.Get(sessionID)
			if !errors.Is(err, sessions.ErrNotFound) {
				t.Errorf("got err '%v', want '%v'", err,
					sessions.ErrNotFound)
			}
			if r != nil {
				t.Errorf("got session %+v, want nil", r)
			}
		})
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestCleanup(t *testing.T) {
	m, mock, cleanup := newTestMySQL(t)
	defer cleanup()

	// Test the unexpected error path
	unexpectedErr := errors.New("unexpected error")
	mock.ExpectExec(m.q.expired).
		WithArgs(m.maxAge, testNow.Unix()).
		WillReturnError(unexpectedErr)

	err := m.Cleanup()
	if !errors.Is(err, unexpectedErr) {
		t.Errorf("got err '%v', want '%v'", err, unexpectedErr)
	}

	// Test the success path
	mock.ExpectExec(m.q.expired).
		WithArgs(m.maxAge, testNow.Unix()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = m.Cleanup()
	if err != nil {
		t.Error(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}
