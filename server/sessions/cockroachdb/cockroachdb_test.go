// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cockroachdb

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/decred/sessionstash/server/sessions"
	"github.com/jinzhu/gorm"
	"github.com/marcopeereboom/sbox"
)

// newTestCockroachDB returns a cockroachdb context that has been setup for
// testing along with the sql mocking context and a cleanup function.
// Invocation of the cleanup function should be deferred by the caller.
func newTestCockroachDB(t *testing.T) (*cockroachdb, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error %s while creating stub db conn", err)
	}
	gdb, err := gorm.Open("postgres", db)
	if err != nil {
		t.Fatalf("error %s while opening db with gorm", err)
	}
	gdb.LogMode(false)

	key, err := sbox.NewKey()
	if err != nil {
		t.Fatal(err)
	}
	c := &cockroachdb{
		encryptionKey: key,
		db:            gdb,
		sessionMaxAge: 60,
	}

	return c, mock, func() {
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

func TestSave(t *testing.T) {
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		es        = sessions.EncodedSession{Values: "test-values"}
	)
	q := regexp.QuoteMeta("INSERT INTO sessions (id, blob, created_at) " +
		"VALUES ($1, $2, $3)")

	// Test the unexpected error path
	unexpectedErr := errors.New("unexpected error")
	mock.ExpectExec(q).
		WithArgs(sessionKey(sessionID), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(unexpectedErr)

	err := c.Save(sessionID, es)
	if !errors.Is(err, unexpectedErr) {
		t.Errorf("got err '%v', want '%v'", err, unexpectedErr)
	}

	// Test the success path
	mock.ExpectExec(q).
		WithArgs(sessionKey(sessionID), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = c.Save(sessionID, es)
	if err != nil {
		t.Error(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestGet(t *testing.T) {
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		es        = sessions.EncodedSession{Values: "test-values"}
		q         = `SELECT \* FROM "sessions"\s+WHERE \(id = \$1\)`
	)
	b, err := json.Marshal(es)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := c.encrypt(sessionVersion, b)
	if err != nil {
		t.Fatal(err)
	}

	// Test the not found error path
	mock.ExpectQuery(q).
		WithArgs(sessionKey(sessionID)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "blob", "created_at"}))

	_, err = c.Get(sessionID)
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}

	// Test the success path
	rows := sqlmock.NewRows([]string{"id", "blob", "created_at"}).
		AddRow(sessionKey(sessionID), blob, time.Now().Unix())
	mock.ExpectQuery(q).
		WithArgs(sessionKey(sessionID)).
		WillReturnRows(rows)

	r, err := c.Get(sessionID)
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
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	var (
		sessionID = "test-session-id"
		q         = `SELECT \* FROM "sessions"\s+WHERE \(id = \$1\)`
	)
	b, err := json.Marshal(sessions.EncodedSession{Values: "stale"})
	if err != nil {
		t.Fatal(err)
	}
	blob, err := c.encrypt(sessionVersion, b)
	if err != nil {
		t.Fatal(err)
	}

	// The row outlived the max age but Cleanup has not run yet
	createdAt := time.Now().Unix() - c.sessionMaxAge - 1
	rows := sqlmock.NewRows([]string{"id", "blob", "created_at"}).
		AddRow(sessionKey(sessionID), blob, createdAt)
	mock.ExpectQuery(q).
		WithArgs(sessionKey(sessionID)).
		WillReturnRows(rows)

	r, err := c.Get(sessionID)
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}
	if r != nil {
		t.Errorf("got session %+v, want nil", r)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestDel(t *testing.T) {
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	sessionID := "test-session-id"

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "sessions"\s+WHERE \(id = \$1\)`).
		WithArgs(sessionKey(sessionID)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := c.Del(sessionID)
	if err != nil {
		t.Error(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestCleanup(t *testing.T) {
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "sessions"\s+WHERE \(created_at \+ \$1 <= \$2\)`).
		WithArgs(c.sessionMaxAge, AnyInt64{}).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := c.Cleanup()
	if err != nil {
		t.Error(err)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}

func TestClose(t *testing.T) {
	c, mock, cleanup := newTestCockroachDB(t)
	defer cleanup()

	mock.ExpectClose()
	err := c.Close()
	if err != nil {
		t.Fatal(err)
	}

	err = c.Save("id", sessions.EncodedSession{})
	if !errors.Is(err, errShutdown) {
		t.Errorf("got err '%v', want '%v'", err, errShutdown)
	}
	_, err = c.Get("id")
	if !errors.Is(err, errShutdown) {
		t.Errorf("got err '%v', want '%v'", err, errShutdown)
	}
}

func TestLoadEncryptionKey(t *testing.T) {
	dir := t.TempDir()

	key, err := sbox.NewKey()
	if err != nil {
		t.Fatal(err)
	}
	fp := filepath.Join(dir, "sbox.key")
	err = os.WriteFile(fp, []byte(hex.EncodeToString(key[:])), 0600)
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadEncryptionKey(fp)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *key {
		t.Errorf("loaded key does not match")
	}

	// Invalid length
	bad := filepath.Join(dir, "bad.key")
	err = os.WriteFile(bad, []byte("abcd"), 0600)
	if err != nil {
		t.Fatal(err)
	}
	_, err = LoadEncryptionKey(bad)
	if err == nil {
		t.Errorf("expected an invalid key length error")
	}
}
