// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/decred/sessionstash/drafts"
	"github.com/decred/sessionstash/logger"
	"github.com/decred/sessionstash/server"
	"github.com/decred/sessionstash/server/sessions"
	"github.com/decred/sessionstash/server/sessions/cockroachdb"
	"github.com/decred/sessionstash/server/sessions/localdb"
	"github.com/decred/sessionstash/server/sessions/mysql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/robfig/cron"
)

const (
	// sessionsCleanupSchedule is the cron schedule of the expired sessions
	// cleanup.
	sessionsCleanupSchedule = "@hourly"

	// MySQL connection pool settings
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited (sql package default)
	maxIdleConns    = 10
)

func main() {
	err := _main()
	logger.CloseLogRotator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func _main() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Infof("Version   : %v", cfg.Version)
	log.Infof("Home dir  : %v", cfg.HomeDir)
	log.Infof("DB        : %v", cfg.DB)
	log.Infof("Session DB: %v", cfg.SessionDB)

	// Setup the drafts database
	gdb, err := openDraftsDB(cfg)
	if err != nil {
		return err
	}
	d, err := drafts.New(gdb, nil)
	if err != nil {
		gdb.Close()
		return err
	}
	defer d.Close()

	// Setup the sessions database
	sdb, err := openSessionsDB(cfg)
	if err != nil {
		return err
	}
	if c, ok := sdb.(io.Closer); ok {
		defer c.Close()
	}

	// Periodically delete expired sessions
	cr := cron.New()
	if c, ok := sdb.(sessions.Cleaner); ok {
		log.Infof("Launch sessions cleanup %v", sessionsCleanupSchedule)
		err = cr.AddFunc(sessionsCleanupSchedule, func() {
			err := c.Cleanup()
			if err != nil {
				log.Errorf("Sessions cleanup: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}
	cr.Start()
	defer cr.Stop()

	// Setup the server
	serverCfg := &server.Config{
		BuildVersion:     cfg.Version,
		HTTPSCert:        cfg.HTTPSCert,
		HTTPSKey:         cfg.HTTPSKey,
		CSRFKey:          filepath.Join(cfg.HomeDir, "csrf.key"),
		CSRFMaxAge:       cfg.CSRFMaxAge,
		SessionKey:       filepath.Join(cfg.HomeDir, "session.key"),
		SessionMaxAge:    cfg.SessionMaxAge,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReqBodySizeLimit: cfg.ReqBodySizeLimit,
		Listen:           cfg.Listen,
	}
	s, err := server.New(serverCfg, sdb, d)
	if err != nil {
		return err
	}

	// Tell the server to start listening for requests
	listenC := make(chan error)
	s.ListenAndServeTLS(listenC)

	// Tell the user we are ready to go
	log.Infof("Start of day")

	// Setup OS signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigs:
		log.Infof("Terminating with %v", sig)
	case err := <-listenC:
		log.Errorf("%v", err)
	}

	log.Infof("Exiting")
	s.Shutdown()

	return nil
}

// openDraftsDB opens the gorm connection of the drafts database.
func openDraftsDB(cfg *config) (*gorm.DB, error) {
	switch cfg.DB {
	case dbTypeMySQL:
		h := fmt.Sprintf("%v:%v@tcp(%v)/%v?parseTime=true",
			cfg.AppName, cfg.DBPass, cfg.DBHost, cfg.AppName)
		log.Infof("Drafts DB: %v:[pass]@tcp(%v)/%v", cfg.AppName,
			cfg.DBHost, cfg.AppName)

		db, err := gorm.Open("mysql", h)
		if err != nil {
			return nil, fmt.Errorf("connect to mysql: %v", err)
		}
		db.DB().SetConnMaxLifetime(connMaxLifetime)
		db.DB().SetMaxOpenConns(maxOpenConns)
		db.DB().SetMaxIdleConns(maxIdleConns)
		return db, nil

	case dbTypeCockroachDB:
		u, err := cockroachURL(cfg)
		if err != nil {
			return nil, err
		}
		log.Infof("Drafts DB: %v", cfg.DBHost)

		db, err := gorm.Open("postgres", u)
		if err != nil {
			return nil, fmt.Errorf("connect to cockroachdb: %v", err)
		}
		return db, nil
	}

	return nil, fmt.Errorf("invalid db '%v'", cfg.DB)
}

// cockroachURL returns the connection URL of the stashd user of the
// CockroachDB database.
func cockroachURL(cfg *config) (string, error) {
	h := "postgresql://" + cfg.AppName + "@" + cfg.DBHost + "/" + cfg.AppName
	u, err := url.Parse(h)
	if err != nil {
		return "", fmt.Errorf("parse url '%v': %v", h, err)
	}

	q := u.Query()
	q.Add("sslmode", "require")
	q.Add("sslrootcert", cfg.DBRootCert)
	q.Add("sslcert", cfg.DBCert)
	q.Add("sslkey", cfg.DBKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// openSessionsDB opens the sessions database. The returned database must be
// closed by the caller if it implements io.Closer.
func openSessionsDB(cfg *config) (sessions.DB, error) {
	switch cfg.SessionDB {
	case dbTypeMySQL:
		h := fmt.Sprintf("%v:%v@tcp(%v)/%v", cfg.AppName, cfg.DBPass,
			cfg.DBHost, cfg.AppName)
		db, err := sql.Open("mysql", h)
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)

		err = db.Ping()
		if err != nil {
			db.Close()
			return nil, err
		}
		m, err := mysql.New(db, cfg.SessionMaxAge, nil)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sqlSessionsDB{DB: m, db: db}, nil

	case dbTypeCockroachDB:
		return cockroachdb.Open(cfg.DBHost, cfg.AppName, cfg.DBRootCert,
			cfg.DBCert, cfg.DBKey, cfg.EncryptionKey, cfg.SessionMaxAge)

	case dbTypeLevelDB:
		fp := filepath.Join(cfg.DataDir, "sessions")
		log.Infof("Sessions DB: %v", fp)
		return localdb.New(fp, cfg.SessionMaxAge)
	}

	return nil, fmt.Errorf("invalid sessiondb '%v'", cfg.SessionDB)
}

// sqlSessionsDB is a sessions database that owns its sql connection.
type sqlSessionsDB struct {
	sessions.DB
	db *sql.DB
}

// Cleanup deletes the expired sessions.
//
// This function satisfies the sessions.Cleaner interface.
func (s sqlSessionsDB) Cleanup() error {
	return s.DB.(sessions.Cleaner).Cleanup()
}

// Close closes the sql connection.
func (s sqlSessionsDB) Close() error {
	return s.db.Close()
}
