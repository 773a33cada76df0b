// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cockroachdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/decred/sessionstash/server/sessions"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/marcopeereboom/sbox"
	"github.com/pkg/errors"
)

const (
	// Database table names
	tableSessions = "sessions"

	// Database user (read/write access)
	userStashd = "stashd"

	// sessionVersion is the sbox header version of an encrypted session
	// blob.
	sessionVersion uint32 = 1
)

var (
	_ sessions.DB      = (*cockroachdb)(nil)
	_ sessions.Cleaner = (*cockroachdb)(nil)

	// errShutdown is returned when the database is used after Close.
	errShutdown = errors.New("database is shutdown")
)

// cockroachdb implements the sessions.DB interface.
type cockroachdb struct {
	sync.RWMutex

	shutdown      bool      // Backend is shutdown
	encryptionKey *[32]byte // Data at rest encryption key
	db            *gorm.DB  // Database context

	// sessionMaxAge is the max age of a session in seconds. Get hides
	// expired sessions and Cleanup deletes them.
	sessionMaxAge int64
}

// isShutdown returns whether the backend has been shutdown.
func (c *cockroachdb) isShutdown() bool {
	c.RLock()
	defer c.RUnlock()

	return c.shutdown
}

// encrypt encrypts the provided data with the cockroachdb encryption key. The
// encrypted blob is prefixed with an sbox header which encodes the provided
// version. The read lock is taken despite the encryption key being a static
// value because the encryption key is zeroed out on shutdown.
//
// This function must be called without the lock held.
func (c *cockroachdb) encrypt(version uint32, b []byte) ([]byte, error) {
	c.RLock()
	defer c.RUnlock()

	return sbox.Encrypt(version, c.encryptionKey, b)
}

// decrypt decrypts the provided packed blob using the cockroachdb encryption
// key.
//
// This function must be called without the lock held.
func (c *cockroachdb) decrypt(b []byte) ([]byte, uint32, error) {
	c.RLock()
	defer c.RUnlock()

	return sbox.Decrypt(c.encryptionKey, b)
}

// sessionKey returns the primary key of a session ID.
func sessionKey(sessionID string) string {
	h := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(h[:])
}

// Save saves a session to the database. New sessions are inserted into the
// database. Existing sessions have their blob updated. The creation time of
// an existing session is left untouched.
//
// Save satisfies the sessions.DB interface.
func (c *cockroachdb) Save(sessionID string, es sessions.EncodedSession) error {
	log.Tracef("Save: %v", sessionID)

	if c.isShutdown() {
		return errShutdown
	}

	b, err := json.Marshal(es)
	if err != nil {
		return err
	}
	eb, err := c.encrypt(sessionVersion, b)
	if err != nil {
		return err
	}

	q := `INSERT INTO sessions (id, blob, created_at) VALUES (?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET blob = excluded.blob`

	err = c.db.Exec(q, sessionKey(sessionID), eb, time.Now().Unix()).Error
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Get returns a session from the database. A sessions.ErrNotFound error is
// returned if the session does not exist or has expired.
//
// Get satisfies the sessions.DB interface.
func (c *cockroachdb) Get(sessionID string) (*sessions.EncodedSession, error) {
	log.Tracef("Get: %v", sessionID)

	if c.isShutdown() {
		return nil, errShutdown
	}

	var s Session
	err := c.db.
		Where("id = ?", sessionKey(sessionID)).
		Find(&s).
		Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, sessions.ErrNotFound
		}
		return nil, errors.WithStack(err)
	}
	if sessions.Expired(s.CreatedAt, c.sessionMaxAge, time.Now()) {
		log.Debugf("Session %v expired", sessionID)
		return nil, sessions.ErrNotFound
	}

	b, _, err := c.decrypt(s.Blob)
	if err != nil {
		return nil, err
	}
	var es sessions.EncodedSession
	err = json.Unmarshal(b, &es)
	if err != nil {
		return nil, err
	}

	return &es, nil
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions.DB interface.
func (c *cockroachdb) Del(sessionID string) error {
	log.Tracef("Del: %v", sessionID)

	if c.isShutdown() {
		return errShutdown
	}

	err := c.db.
		Where("id = ?", sessionKey(sessionID)).
		Delete(Session{}).
		Error
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Cleanup deletes all sessions that have expired.
//
// Cleanup satisfies the sessions.Cleaner interface.
func (c *cockroachdb) Cleanup() error {
	log.Tracef("Cleanup")

	if c.isShutdown() {
		return errShutdown
	}

	r := c.db.
		Where("created_at + ? <= ?", c.sessionMaxAge, time.Now().Unix()).
		Delete(Session{})
	if r.Error != nil {
		return errors.WithStack(r.Error)
	}

	log.Debugf("Deleted %v expired sessions from the database", r.RowsAffected)

	return nil
}

// Close shuts down the database. All interface functions return with
// errShutdown once the backend has been shut down.
func (c *cockroachdb) Close() error {
	log.Tracef("Close")

	c.Lock()
	defer c.Unlock()

	// Zero out encryption key
	for i := range c.encryptionKey {
		c.encryptionKey[i] = 0
	}
	c.encryptionKey = nil

	c.shutdown = true
	return c.db.Close()
}

// LoadEncryptionKey loads a hex encoded 32 byte key from the provided file.
func LoadEncryptionKey(filepath string) (*[32]byte, error) {
	log.Tracef("LoadEncryptionKey: %v", filepath)

	b, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Errorf("load encryption key %v: %v",
			filepath, err)
	}

	if hex.DecodedLen(len(b)) != 32 {
		return nil, errors.Errorf("invalid key length %v", filepath)
	}

	k := make([]byte, 32)
	_, err = hex.Decode(k, b)
	if err != nil {
		return nil, errors.Errorf("decode hex %v: %v", filepath, err)
	}

	var key [32]byte
	copy(key[:], k)
	for i := range k {
		k[i] = 0
	}

	return &key, nil
}

// New returns a new cockroachdb context that uses the provided gorm
// connection. The sessions table is created if it does not exist and expired
// sessions are removed.
func New(db *gorm.DB, sessionMaxAge int64, encryptionKey *[32]byte) (*cockroachdb, error) {
	c := &cockroachdb{
		encryptionKey: encryptionKey,
		db:            db,
		sessionMaxAge: sessionMaxAge,
	}

	// Disable gorm logging. This prevents duplicate errors
	// from being printed since we handle errors manually.
	c.db.LogMode(false)

	// Disable automatic table name pluralization.
	// We set table names manually.
	c.db.SingularTable(true)

	if !c.db.HasTable(tableSessions) {
		err := c.db.CreateTable(&Session{}).Error
		if err != nil {
			return nil, errors.WithStack(err)
		}
		log.Debugf("Created %v database table", tableSessions)
	}

	err := c.Cleanup()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Open opens a connection to the CockroachDB sessions database and returns a
// new cockroachdb context. sslRootCert, sslCert, sslKey, and encryptionKey
// are file paths.
func Open(host, dbName, sslRootCert, sslCert, sslKey, encryptionKey string, sessionMaxAge int64) (*cockroachdb, error) {
	log.Tracef("Open: %v %v", host, dbName)

	// Build url
	h := "postgresql://" + userStashd + "@" + host + "/" + dbName
	u, err := url.Parse(h)
	if err != nil {
		return nil, fmt.Errorf("parse url '%v': %v", h, err)
	}

	q := u.Query()
	q.Add("sslmode", "require")
	q.Add("sslrootcert", sslRootCert)
	q.Add("sslcert", sslCert)
	q.Add("sslkey", sslKey)
	u.RawQuery = q.Encode()

	// Load encryption key
	key, err := LoadEncryptionKey(encryptionKey)
	if err != nil {
		return nil, err
	}

	// Connect to database
	db, err := gorm.Open("postgres", u.String())
	if err != nil {
		return nil, fmt.Errorf("connect to database '%v': %v", h, err)
	}

	log.Infof("Sessions DB host: %v", h)

	c, err := New(db, sessionMaxAge, key)
	if err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}
