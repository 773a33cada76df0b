// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	var tests = []struct {
		name       string
		debugLevel string
		wantErr    bool
	}{
		{"all subsystems", "debug", false},
		{"one subsystem", "STSH=trace", false},
		{"many subsystems", "STSH=trace,SERV=warn", false},
		{"invalid level", "loud", true},
		{"invalid pair", "STSH=trace,SERV", true},
		{"invalid subsystem", "NOPE=trace", true},
		{"invalid subsystem level", "STSH=loud", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := parseAndSetDebugLevels(tc.debugLevel)
			if (err != nil) != tc.wantErr {
				t.Errorf("got err %v, want err %v", err, tc.wantErr)
			}
		})
	}
}

func TestSetupDBSettings(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "sbox.key")
	err := os.WriteFile(keyFile, []byte("00"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	var tests = []struct {
		name     string
		cfg      config
		dbPass   string
		wantErr  bool
		wantHost string
	}{
		{
			"mysql",
			config{DB: dbTypeMySQL, SessionDB: dbTypeLevelDB},
			"pass",
			false,
			defaultMySQLHost,
		},
		{
			"mysql without password",
			config{DB: dbTypeMySQL, SessionDB: dbTypeMySQL},
			"",
			true,
			"",
		},
		{
			"cockroachdb",
			config{
				DB:            dbTypeCockroachDB,
				SessionDB:     dbTypeCockroachDB,
				DBRootCert:    "ca.crt",
				DBCert:        "client.crt",
				DBKey:         "client.key",
				EncryptionKey: keyFile,
			},
			"",
			false,
			defaultCockroachDB,
		},
		{
			"cockroachdb without certs",
			config{DB: dbTypeCockroachDB, SessionDB: dbTypeLevelDB},
			"",
			true,
			"",
		},
		{
			"cockroachdb sessions without key",
			config{
				DB:         dbTypeCockroachDB,
				SessionDB:  dbTypeCockroachDB,
				DBRootCert: "ca.crt",
				DBCert:     "client.crt",
				DBKey:      "client.key",
			},
			"",
			true,
			"",
		},
		{
			"mixed servers",
			config{DB: dbTypeMySQL, SessionDB: dbTypeCockroachDB},
			"pass",
			true,
			"",
		},
		{
			"invalid db",
			config{DB: dbTypeLevelDB, SessionDB: dbTypeLevelDB},
			"",
			true,
			"",
		},
		{
			"invalid host",
			config{DB: dbTypeMySQL, SessionDB: dbTypeLevelDB,
				DBHost: "localhost"},
			"pass",
			true,
			"",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(envDBPass, tc.dbPass)

			cfg := tc.cfg
			err := setupDBSettings(&cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("got err %v, want err %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if cfg.DBHost != tc.wantHost {
				t.Errorf("got host %v, want %v", cfg.DBHost, tc.wantHost)
			}
			if cfg.DBPass != tc.dbPass {
				t.Errorf("got password %q, want %q", cfg.DBPass, tc.dbPass)
			}
		})
	}
}

func TestCockroachURL(t *testing.T) {
	cfg := &config{
		AppName:    appName,
		DBHost:     "localhost:26257",
		DBRootCert: "/certs/ca.crt",
		DBCert:     "/certs/client.crt",
		DBKey:      "/certs/client.key",
	}
	s, err := cockroachURL(cfg)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}

	if u.User.Username() != appName || u.Host != cfg.DBHost ||
		u.Path != "/"+appName {
		t.Errorf("unexpected url %v", s)
	}
	q := u.Query()
	if q.Get("sslmode") != "require" || q.Get("sslkey") != cfg.DBKey {
		t.Errorf("unexpected query %v", u.RawQuery)
	}
}
