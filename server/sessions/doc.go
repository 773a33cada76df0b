// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sessions implements a gorilla/sessions Store that keeps the session
values in a database and only sends an encoded session ID to the client.

The caller uses Get() to load the session for a request. A new session is
returned when the request does not carry a session cookie or when the session
is no longer in the database.

Application specific key-value data is saved in the Values field of the
session. Anonymous visitors get a session too. Stash lists of entities that
were created before the visitor logged in are kept there. The values are never
sent to the client. They are encoded with securecookie and saved to the
database under the session ID.

The caller uses Save() to save the encoded values to the database and the
encoded session ID to the response cookie. Saving a session with a MaxAge of
zero or less deletes it.

Database implementations live in subpackages:

	mysql        database/sql on MySQL
	cockroachdb  gorm on CockroachDB, values encrypted at rest
	localdb      leveldb, for single node setups and testing

Keys can be rotated by providing multiple key pairs to NewStore.
*/
package sessions
