// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/decred/sessionstash/drafts"
	"github.com/decred/sessionstash/logger"
	"github.com/decred/sessionstash/server"
	"github.com/decred/sessionstash/server/sessions"
	"github.com/decred/sessionstash/server/sessions/cockroachdb"
	"github.com/decred/sessionstash/server/sessions/localdb"
	"github.com/decred/sessionstash/server/sessions/mysql"
	"github.com/decred/sessionstash/stash"
)

// Loggers per subsystem. A single backend logger is created in the logger
// package and all subsystem loggers created from it write to the backend.
// When adding new subsystems, add the subsystem logger variable here and
// pass it to the package in init.
var (
	log         = logger.NewSubsystem("STSD")
	serverLog   = logger.NewSubsystem("SERV")
	sessionsLog = logger.NewSubsystem("SESS")
	stashLog    = logger.NewSubsystem("STSH")
	draftsLog   = logger.NewSubsystem("DRFT")
)

// Initialize package-global logger variables.
func init() {
	server.UseLogger(serverLog)
	sessions.UseLogger(sessionsLog)
	mysql.UseLogger(sessionsLog)
	cockroachdb.UseLogger(sessionsLog)
	localdb.UseLogger(sessionsLog)
	stash.UseLogger(stashLog)
	drafts.UseLogger(draftsLog)
}
