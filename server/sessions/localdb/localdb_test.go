// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/sessionstash/server/sessions"
)

func setupTestDB(t *testing.T, sessionMaxAge int64) *localdb {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "sessions"), sessionMaxAge)
	if err != nil {
		t.Fatalf("setup database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSaveGetDel(t *testing.T) {
	db := setupTestDB(t, 60)

	var (
		sessionID = "test-session-id"
		es        = sessions.EncodedSession{Values: "test-values"}
	)

	_, err := db.Get(sessionID)
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}

	err = db.Save(sessionID, es)
	if err != nil {
		t.Fatal(err)
	}
	r, err := db.Get(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Values != es.Values {
		t.Errorf("got values '%v', want '%v'", r.Values, es.Values)
	}

	// Updates keep the creation time
	s, err := db.get(sessionKey(sessionID))
	if err != nil {
		t.Fatal(err)
	}
	err = db.Save(sessionID, sessions.EncodedSession{Values: "updated"})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := db.get(sessionKey(sessionID))
	if err != nil {
		t.Fatal(err)
	}
	if s2.CreatedAt != s.CreatedAt {
		t.Errorf("creation time changed on update")
	}
	if s2.EncodedSession.Values != "updated" {
		t.Errorf("got values '%v', want 'updated'", s2.EncodedSession.Values)
	}

	err = db.Del(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Get(sessionID)
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}

	// Deleting a missing session is not an error
	err = db.Del(sessionID)
	if err != nil {
		t.Errorf("Del missing session: %v", err)
	}
}

func TestCleanup(t *testing.T) {
	db := setupTestDB(t, 60)

	// Insert an expired record directly
	expired := session{
		EncodedSession: sessions.EncodedSession{Values: "old"},
		CreatedAt:      time.Now().Unix() - 120,
	}
	b, err := json.Marshal(expired)
	if err != nil {
		t.Fatal(err)
	}
	err = db.db.Put(sessionKey("expired"), b, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = db.Save("fresh", sessions.EncodedSession{Values: "new"})
	if err != nil {
		t.Fatal(err)
	}

	err = db.Cleanup()
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.Get("expired")
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("expired session was not deleted")
	}
	_, err = db.Get("fresh")
	if err != nil {
		t.Errorf("fresh session was deleted: %v", err)
	}
}

func TestGetExpired(t *testing.T) {
	db := setupTestDB(t, 60)

	// The record outlived the max age but Cleanup has not run yet
	expired := session{
		EncodedSession: sessions.EncodedSession{Values: "stale"},
		CreatedAt:      time.Now().Unix() - 60,
	}
	b, err := json.Marshal(expired)
	if err != nil {
		t.Fatal(err)
	}
	err = db.db.Put(sessionKey("expired"), b, nil)
	if err != nil {
		t.Fatal(err)
	}

	r, err := db.Get("expired")
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got err '%v', want '%v'", err, sessions.ErrNotFound)
	}
	if r != nil {
		t.Errorf("got session %+v, want nil", r)
	}

	// The record is still there until Cleanup removes it
	_, err = db.get(sessionKey("expired"))
	if err != nil {
		t.Errorf("expired record was removed by Get: %v", err)
	}
}

func TestShutdown(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "sessions"), 60)
	if err != nil {
		t.Fatal(err)
	}
	err = db.Close()
	if err != nil {
		t.Fatal(err)
	}

	err = db.Save("id", sessions.EncodedSession{})
	if !errors.Is(err, errShutdown) {
		t.Errorf("got err '%v', want '%v'", err, errShutdown)
	}
	_, err = db.Get("id")
	if !errors.Is(err, errShutdown) {
		t.Errorf("got err '%v', want '%v'", err, errShutdown)
	}
}
