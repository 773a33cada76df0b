// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package drafts provides the draft and user records of the stash daemon.
// Drafts are stashable. A draft created by an anonymous visitor has no owner
// and is tracked in the visitor's session until the visitor logs in.
package drafts

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/decred/sessionstash/stash"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	errs "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TitleLengthMax is the max length of a draft title in characters.
	TitleLengthMax = 80

	// BodyLengthMax is the max length of a draft body in characters.
	BodyLengthMax = 8192

	// UsernameLengthMin is the min length of a username.
	UsernameLengthMin = 3

	// UsernameLengthMax is the max length of a username.
	UsernameLengthMax = 32

	// PasswordLengthMin is the min length of a password.
	PasswordLengthMin = 8
)

var (
	// ErrInvalidTitle is returned when a draft title is empty or too long.
	ErrInvalidTitle = errors.New("invalid title")

	// ErrInvalidBody is returned when a draft body is too long.
	ErrInvalidBody = errors.New("invalid body")

	// ErrInvalidUsername is returned when a username does not meet the
	// username requirements.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidPassword is returned when a password does not meet the
	// password requirements.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrLoginFailed is returned when the username or password of a login
	// attempt is wrong.
	ErrLoginFailed = errors.New("login failed")

	// ErrDraftNotFound is returned when a draft does not exist.
	ErrDraftNotFound = errors.New("draft not found")

	// validUsername contains the allowed username characters.
	validUsername = regexp.MustCompile("^[a-z0-9._-]+$")
)

// DB is the drafts database.
type DB struct {
	db *gorm.DB

	// bcryptCost is the cost of new password hashes.
	bcryptCost int

	// Drafts provides the stash operations of drafts.
	Drafts *stash.Manager[Draft]
}

// Opts contains configurable options for the drafts database. These are not
// required. Sane defaults are used when the options are not provided.
type Opts struct {
	// BcryptCost is the cost of new password hashes.
	BcryptCost int

	// SkipSetup skips the creation of the database tables. It is used when
	// the schema is managed outside of this package.
	SkipSetup bool
}

// New returns a new DB that uses the provided gorm connection. The database
// tables are created if they do not exist. The opts param can be used to
// override the default settings.
func New(db *gorm.DB, opts *Opts) (*DB, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	// Disable gorm logging. This prevents duplicate errors
	// from being printed since we handle errors manually.
	db.LogMode(false)

	if !opts.SkipSetup {
		tx := db.Begin()
		err := createTables(tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		err = tx.Commit().Error
		if err != nil {
			return nil, errs.WithStack(err)
		}
	}

	return &DB{
		db:         db,
		bcryptCost: opts.BcryptCost,
		Drafts:     stash.NewManager[Draft](db),
	}, nil
}

// createTables creates the database tables that do not exist yet.
//
// This function must be called using a transaction.
func createTables(tx *gorm.DB) error {
	if !tx.HasTable(tableUsers) {
		err := tx.CreateTable(&User{}).Error
		if err != nil {
			return errs.WithStack(err)
		}
		log.Debugf("Created %v database table", tableUsers)
	}
	if !tx.HasTable(tableDrafts) {
		err := tx.CreateTable(&Draft{}).Error
		if err != nil {
			return errs.WithStack(err)
		}
		log.Debugf("Created %v database table", tableDrafts)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// DraftNew validates and inserts a new draft. The draft is owned by createdBy
// or anonymous when createdBy is nil. The inserted draft is returned.
func (d *DB) DraftNew(title, body string, createdBy *uuid.UUID) (*Draft, error) {
	log.Tracef("DraftNew: %v", title)

	title = strings.TrimSpace(title)
	l := utf8.RuneCountInString(title)
	if l == 0 || l > TitleLengthMax {
		return nil, ErrInvalidTitle
	}
	if utf8.RuneCountInString(body) > BodyLengthMax {
		return nil, ErrInvalidBody
	}

	dr := Draft{
		Title:     title,
		Body:      body,
		CreatedBy: createdBy,
	}
	err := d.db.Create(&dr).Error
	if err != nil {
		return nil, errs.Wrap(err, "create draft")
	}

	log.Debugf("Draft created %v", dr.ID)

	return &dr, nil
}

// DraftByID returns a draft. ErrDraftNotFound is returned if the draft does
// not exist.
func (d *DB) DraftByID(id int64) (*Draft, error) {
	log.Tracef("DraftByID: %v", id)

	var dr Draft
	err := d.db.
		Where("id = ?", id).
		Find(&dr).
		Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrDraftNotFound
		}
		return nil, errs.WithStack(err)
	}

	return &dr, nil
}

// userByUsername returns the user with the username. gorm.ErrRecordNotFound
// is returned if the user does not exist.
func (d *DB) userByUsername(username string) (*User, error) {
	var u User
	err := d.db.
		Where("username = ?", username).
		Find(&u).
		Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// formatUsername normalizes a username.
func formatUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// validateUsername verifies that a formatted username meets the username
// requirements.
func validateUsername(username string) error {
	l := len(username)
	if l < UsernameLengthMin || l > UsernameLengthMax ||
		!validUsername.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// UserNew creates a new user account. ErrUserExists is returned if the
// username is already taken.
func (d *DB) UserNew(username, password string) (*User, error) {
	username = formatUsername(username)

	log.Tracef("UserNew: %v", username)

	err := validateUsername(username)
	if err != nil {
		return nil, err
	}
	if len(password) < PasswordLengthMin {
		return nil, ErrInvalidPassword
	}

	// Verify the username is not taken
	_, err = d.userByUsername(username)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case gorm.IsRecordNotFoundError(err):
		// Username is available; continue
	default:
		return nil, errs.WithStack(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password),
		d.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := User{
		ID:             uuid.New(),
		Username:       username,
		HashedPassword: hashedPassword,
	}
	err = d.db.Create(&u).Error
	if err != nil {
		return nil, errs.Wrap(err, "create user")
	}

	log.Infof("User created %v %v", u.ID, u.Username)

	return &u, nil
}

// UserLogin verifies the credentials of a user and returns the user.
// ErrLoginFailed is returned if the user does not exist or if the password
// is wrong.
func (d *DB) UserLogin(username, password string) (*User, error) {
	username = formatUsername(username)

	log.Tracef("UserLogin: %v", username)

	u, err := d.userByUsername(username)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrLoginFailed
		}
		return nil, errs.WithStack(err)
	}

	err = bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password))
	if err != nil {
		return nil, ErrLoginFailed
	}

	return u, nil
}
