// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package stash lets database entities be held in a visitor's session before
they have an owner.

An anonymous visitor can create entities (drafts, uploads, carts) that have
no owner yet. The identifiers of those entities are recorded in a list that
lives in the visitor's session. The application can then ask which entities
the visitor may act on, and once the visitor logs in, hand all of them to the
new account in a single bulk update.

Entity types opt in by implementing the Entity interface. The type level
settings, such as the session key that holds the list and the name of the
owner column, are returned by Entity.StashKind. A Manager provides the
operations for a single entity type:

	drafts := stash.NewManager[Draft](db)

	// Anonymous visitor creates a draft.
	_, err := drafts.Stash(session, draft)

	// What can this visitor act on?
	visible, err := drafts.Visible(request)

	// Visitor logs in.
	_, err = drafts.ReparentAll(session, userID)

A Registry collects the managers of all entity types at startup so that the
number of stashed entities per type can be added to the render context of
every request. Only types that set Kind.CountName contribute a value.

The package does not persist sessions. It reads and writes values through
the Session interface and flags the session as modified when the host must
save it. The Values type adapts a gorilla/sessions value map.
*/
package stash
