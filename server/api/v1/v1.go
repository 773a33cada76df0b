// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import "fmt"

const (
	// APIVersion is the version of the API that this package represents.
	APIVersion uint32 = 1

	// APIVersionPrefix is the URL prefix of all routes in this package.
	APIVersionPrefix = "/v1"

	// Routes
	VersionRoute     = "/version"
	PolicyRoute      = "/policy"
	UserNewRoute     = "/user/new"
	LoginRoute       = "/login"
	LogoutRoute      = "/logout"
	DraftNewRoute    = "/drafts/new"
	DraftsRoute      = "/drafts"
	DraftRoute       = "/drafts/{id:[0-9]+}"
	DraftsClearRoute = "/drafts/clear"
	StashCountsRoute = "/stash/counts"

	// CSRFTokenHeader is the header that will contain a CSRF token.
	CSRFTokenHeader = "X-CSRF-Token"

	// SessionCookieName is the cookie name for the session cookie. Clients
	// receive a session cookie on the first request that modifies the
	// session, whether or not they are logged in.
	SessionCookieName = "session"
)

// ErrCode represents a user error code.
type ErrCode uint32

const (
	// ErrCodeInvalid is an invalid error code.
	ErrCodeInvalid ErrCode = 0

	// ErrCodeInvalidInput is returned when the request body could not be
	// parsed.
	ErrCodeInvalidInput ErrCode = 1

	// ErrCodeInvalidTitle is returned when a draft title is empty or too
	// long.
	ErrCodeInvalidTitle ErrCode = 2

	// ErrCodeInvalidBody is returned when a draft body is too long.
	ErrCodeInvalidBody ErrCode = 3

	// ErrCodeInvalidUsername is returned when a username does not meet the
	// username requirements.
	ErrCodeInvalidUsername ErrCode = 4

	// ErrCodeInvalidPassword is returned when a password does not meet the
	// password requirements.
	ErrCodeInvalidPassword ErrCode = 5

	// ErrCodeUserExists is returned when a username is already taken.
	ErrCodeUserExists ErrCode = 6

	// ErrCodeLoginFailed is returned when the username or password of a
	// login attempt is wrong.
	ErrCodeLoginFailed ErrCode = 7

	// ErrCodeNotLoggedIn is returned when a route requires a logged in user.
	ErrCodeNotLoggedIn ErrCode = 8

	// ErrCodeDraftNotFound is returned when a draft does not exist or when
	// the requester is not allowed to access it.
	ErrCodeDraftNotFound ErrCode = 9
)

var (
	// ErrCodes contains the human readable error messages.
	ErrCodes = map[ErrCode]string{
		ErrCodeInvalid:         "error invalid",
		ErrCodeInvalidInput:    "invalid input",
		ErrCodeInvalidTitle:    "invalid title",
		ErrCodeInvalidBody:     "invalid body",
		ErrCodeInvalidUsername: "invalid username",
		ErrCodeInvalidPassword: "invalid password",
		ErrCodeUserExists:      "user already exists",
		ErrCodeLoginFailed:     "login failed",
		ErrCodeNotLoggedIn:     "not logged in",
		ErrCodeDraftNotFound:   "draft not found",
	}
)

// UserError is the reply that the server returns when it encounters an error
// that is caused by something that the user did, such as a invalid request
// body. The HTTP status code will be 400.
type UserError struct {
	ErrorCode    ErrCode `json:"errorcode"`
	ErrorContext string  `json:"errorcontext,omitempty"`
}

// Error satisfies the error interface.
func (e UserError) Error() string {
	return fmt.Sprintf("user error code: %v", e.ErrorCode)
}

// InternalError is the reply that the server returns when it encounters an
// unrecoverable error while executing a command. The HTTP status code will be
// 500 and the ErrorCode field will contain a UNIX timestamp that the user can
// provide to the server operator to track down the error details in the logs.
type InternalError struct {
	ErrorCode int64 `json:"errorcode"`
}

// Error satisfies the error interface.
func (e InternalError) Error() string {
	return fmt.Sprintf("internal server error: %v", e.ErrorCode)
}

// Version contains the GET request parameters for the VersionRoute. The
// VersionRoute returns a VersionReply.
//
// This route sets CSRF tokens for clients using the double submit cookie
// technique. A token is set in a cookie and a token is set in a header.
// Clients MUST make a successful Version call before they'll be able to
// use CSRF protected routes.
type Version struct{}

// VersionReply is the reply for the VersionRoute. It contains the server
// version information.
type VersionReply struct {
	// BuildVersion is the sematic version of the server build.
	BuildVersion string `json:"buildversion"`

	// APIVersion is the lowest supported API version.
	APIVersion uint32 `json:"apiversion"`

	// StashVersion is the version of the stash library.
	StashVersion string `json:"stashversion"`
}

// Policy contains the GET request parameters for the PolicyRoute. The
// PolicyRoute returns a PolicyReply.
type Policy struct{}

// PolicyReply is the reply for the PolicyRoute. It contains API policy
// information.
type PolicyReply struct {
	SessionMaxAge     int64  `json:"sessionmaxage"` // In seconds
	TitleLengthMax    uint32 `json:"titlelengthmax"`
	BodyLengthMax     uint32 `json:"bodylengthmax"`
	UsernameLengthMin uint32 `json:"usernamelengthmin"`
	UsernameLengthMax uint32 `json:"usernamelengthmax"`
	PasswordLengthMin uint32 `json:"passwordlengthmin"`
}

// UserNew creates a new user account.
type UserNew struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserNewReply is the reply to the UserNew command.
type UserNewReply struct {
	UserID string `json:"userid"`
}

// Login logs a user in. Drafts that were stashed in the session before the
// login are given to the user.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginReply is the reply to the Login command. Claimed contains the number
// of stashed drafts that are now owned by the user.
type LoginReply struct {
	UserID   string `json:"userid"`
	Username string `json:"username"`
	Claimed  int64  `json:"claimed"`
}

// Logout logs a user out.
type Logout struct{}

// LogoutReply is the reply to the Logout command.
type LogoutReply struct{}

// Draft represents a draft.
type Draft struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedBy string `json:"createdby,omitempty"` // User ID, empty if anonymous
	CreatedAt int64  `json:"createdat"`           // Unix timestamp
	Stashed   bool   `json:"stashed"`             // Stashed in this session
}

// DraftNew creates a new draft. The draft is owned by the logged in user, or
// stashed in the session when the request is anonymous.
type DraftNew struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DraftNewReply is the reply to the DraftNew command.
type DraftNewReply struct {
	Draft Draft `json:"draft"`
}

// Drafts contains the GET request parameters for the DraftsRoute. It returns
// the drafts that the requester can act on. Bodies are left out unless
// requested.
type Drafts struct {
	Bodies bool `schema:"bodies"`
}

// DraftsReply is the reply to the Drafts command. Context contains the stash
// counts of the session, keyed by count name.
type DraftsReply struct {
	Drafts  []Draft                `json:"drafts"`
	Context map[string]interface{} `json:"context"`
}

// DraftReply is the reply for the DraftRoute.
type DraftReply struct {
	Draft Draft `json:"draft"`
}

// DraftsClear removes all drafts from the session stash. The drafts
// themselves are not deleted.
type DraftsClear struct{}

// DraftsClearReply is the reply to the DraftsClear command.
type DraftsClearReply struct{}

// StashCounts contains the GET request parameters for the StashCountsRoute.
type StashCounts struct{}

// StashCountsReply is the reply to the StashCounts command.
type StashCountsReply struct {
	Counts map[string]int `json:"counts"`
}
