// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/decred/dcrd/dcrutil/v3"
	"github.com/decred/sessionstash/logger"
	"github.com/decred/sessionstash/util"
	"github.com/decred/slog"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	// Supported database types
	dbTypeMySQL       = "mysql"
	dbTypeCockroachDB = "cockroachdb"
	dbTypeLevelDB     = "leveldb"
)

var (
	// General application defaults
	appName            = "stashd"
	defaultDataDirname = "data"
	defaultLogDirname  = "logs"
	defaultLogLevel    = "info"

	defaultConfigFilename = fmt.Sprintf("%v.conf", appName)
	defaultLogFilename    = fmt.Sprintf("%v.log", appName)

	defaultHomeDir    = dcrutil.AppDataDir(appName, false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)

	// HTTP server defaults
	defaultHTTPSCertFilename       = "https.cert"
	defaultHTTPSKeyFilename        = "https.key"
	defaultCSRFMaxAge        int64 = 60 * 60 * 24    // 1 day in seconds
	defaultSessionMaxAge     int64 = 60 * 60 * 24    // 1 day in seconds
	defaultReadTimeout       int64 = 5               // In seconds
	defaultWriteTimeout      int64 = 60              // In seconds
	defaultReqBodySizeLimit  int64 = 3 * 1024 * 1024 // 3 MiB
	defaultListen                  = "4443"

	defaultHTTPSCert = filepath.Join(defaultHomeDir, defaultHTTPSCertFilename)
	defaultHTTPSKey  = filepath.Join(defaultHomeDir, defaultHTTPSKeyFilename)

	// Database defaults
	defaultDB          = dbTypeMySQL
	defaultSessionDB   = dbTypeLevelDB
	defaultMySQLHost   = "localhost:3306"
	defaultCockroachDB = "localhost:26257"

	// Environmental variables that are used to pass in config settings
	envDBPass = "DBPASS"
)

// config defines the configuration options for stashd.
//
// See the loadConfig function for details on the configuration load process.
type config struct {
	// General application settings
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir     string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// HTTP server settings
	Listen           string `long:"listen" description:"Port that the http server will listen on"`
	HTTPSCert        string `long:"httpscert" description:"HTTPS certificate file path"`
	HTTPSKey         string `long:"httpskey" description:"HTTPS certificate key path"`
	CSRFMaxAge       int64  `long:"csrfmaxage" description:"Max age of a CSRF cookie in seconds"`
	SessionMaxAge    int64  `long:"sessionmaxage" description:"Max age of a session in seconds"`
	ReadTimeout      int64  `long:"readtimeout" description:"Max duration in seconds that is spent reading the request headers and body"`
	WriteTimeout     int64  `long:"writetimeout" description:"Max duration in seconds that a request connection is kept open"`
	ReqBodySizeLimit int64  `long:"reqbodysizelimit" description:"Max number of bytes allowed in a request body submitted by a client"`

	// Database settings
	DB            string `long:"db" description:"Database of the drafts and users {mysql, cockroachdb}"`
	SessionDB     string `long:"sessiondb" description:"Database of the sessions {mysql, cockroachdb, leveldb}"`
	DBHost        string `long:"dbhost" description:"Database host"`
	DBRootCert    string `long:"dbrootcert" description:"File containing the CA certificate for cockroachdb"`
	DBCert        string `long:"dbcert" description:"File containing the stashd client certificate for cockroachdb"`
	DBKey         string `long:"dbkey" description:"File containing the stashd client certificate key for cockroachdb"`
	EncryptionKey string `long:"encryptionkey" description:"File containing the key that encrypts cockroachdb sessions"`
	DBPass        string // Provided in env variable "DBPASS"

	// Cooked options ready for use
	AppName string
	Version string
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings.
//  2. Pre-parse the command line to check for an alternative config file.
//  3. Load the configuration file, overwriting defaults with any specified
//     options.
//  4. Parse the CLI options and overwrite/add any specified options.
//
// The above results in the daemon functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take precedence.
//
// This functions intializes the log rotater. It is the responsibility of the
// caller to close the log rotater.
func loadConfig() (*config, error) {
	// Setup the default configuration
	cfg := &config{
		// General application defaults
		ShowVersion: false,
		HomeDir:     defaultHomeDir,
		ConfigFile:  defaultConfigFile,
		DataDir:     defaultDataDir,
		LogDir:      defaultLogDir,
		DebugLevel:  defaultLogLevel,

		// HTTP server defaults
		Listen:           defaultListen,
		HTTPSCert:        defaultHTTPSCert,
		HTTPSKey:         defaultHTTPSKey,
		CSRFMaxAge:       defaultCSRFMaxAge,
		SessionMaxAge:    defaultSessionMaxAge,
		ReadTimeout:      defaultReadTimeout,
		WriteTimeout:     defaultWriteTimeout,
		ReqBodySizeLimit: defaultReqBodySizeLimit,

		// Database defaults
		DB:        defaultDB,
		SessionDB: defaultSessionDB,

		// Cooked options ready for use
		AppName: appName,
		Version: version(),
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := *cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", cfg.AppName,
			cfg.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified. Since the home directory is
	// updated, other file paths need to be updated to reflect the updated
	// home directory.
	if preCfg.HomeDir != defaultHomeDir {
		cfg.HomeDir = util.CleanAndExpandPath(preCfg.HomeDir)

		// Update the other path config settings with the newly
		// provided application home directory.
		cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		cfg.HTTPSCert = filepath.Join(cfg.HomeDir, defaultHTTPSCertFilename)
		cfg.HTTPSKey = filepath.Join(cfg.HomeDir, defaultHTTPSKeyFilename)
		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		}
	}
	if preCfg.ConfigFile != defaultConfigFile {
		cfg.ConfigFile = preCfg.ConfigFile
	}

	// Create a default config file when one does not
	// exist and the user did not specify an override.
	if preCfg.ConfigFile == defaultConfigFile &&
		!util.FileExists(cfg.ConfigFile) {
		err := createDefaultConfigFile(cfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating "+
				"a default config file: %v\n", err)
		}
	}

	// Clean the config file path so that we can load it
	cfg.ConfigFile = util.CleanAndExpandPath(cfg.ConfigFile)

	// Load additional settings from the config file
	var configFileError error
	parser := flags.NewParser(cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			return nil, fmt.Errorf("parse config file: %v", err)
		}
		// There is something wrong with the config file path.
		// A config file may not exist. This will be logged as
		// a warning once the logger has been intialized.
		configFileError = err
	}

	// Parse command line options again to ensure they take
	// precedence. If unknown args are found, a warning will
	// be logged once the logger has been initialized.
	unknownArgs, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	// Check for the show log level. This is used to list supported
	// subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	// Clean and expand all file paths
	cfg.HomeDir = util.CleanAndExpandPath(cfg.HomeDir)
	cfg.DataDir = util.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = util.CleanAndExpandPath(cfg.LogDir)
	cfg.HTTPSCert = util.CleanAndExpandPath(cfg.HTTPSCert)
	cfg.HTTPSKey = util.CleanAndExpandPath(cfg.HTTPSKey)

	// Create the app and data directories if they don't already exist
	for _, dir := range []string{cfg.HomeDir, cfg.DataDir} {
		err = os.MkdirAll(dir, 0700)
		if err != nil {
			return nil, fmt.Errorf("failed to create dir: %v", err)
		}
	}

	// Initialize log rotation. After the log rotation has
	// been initialized, the logger variables may be used.
	logger.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Perform various validation and setup
	err = setupDBSettings(cfg)
	if err != nil {
		return nil, err
	}

	// Log any config warnings
	if configFileError != nil {
		log.Warnf("Failed to parse config file: %v", configFileError)
	}
	if len(unknownArgs) != 0 {
		args := strings.Join(unknownArgs, ", ")
		log.Warnf("Unknown arguments found: %v", args)
	}

	return cfg, nil
}

// usesDB returns whether the entity database or the session database is of
// the provided type.
func (c *config) usesDB(dbType string) bool {
	return c.DB == dbType || c.SessionDB == dbType
}

// setupDBSettings performs any required validation and setup for the database
// config settings.
func setupDBSettings(cfg *config) error {
	switch cfg.DB {
	case dbTypeMySQL, dbTypeCockroachDB:
	default:
		return fmt.Errorf("invalid db '%v'", cfg.DB)
	}
	switch cfg.SessionDB {
	case dbTypeMySQL, dbTypeCockroachDB, dbTypeLevelDB:
	default:
		return fmt.Errorf("invalid sessiondb '%v'", cfg.SessionDB)
	}
	if cfg.usesDB(dbTypeMySQL) && cfg.usesDB(dbTypeCockroachDB) {
		return fmt.Errorf("db '%v' and sessiondb '%v' must use the same "+
			"database server", cfg.DB, cfg.SessionDB)
	}

	// Set the database host default
	if cfg.DBHost == "" {
		switch {
		case cfg.usesDB(dbTypeMySQL):
			cfg.DBHost = defaultMySQLHost
		case cfg.usesDB(dbTypeCockroachDB):
			cfg.DBHost = defaultCockroachDB
		}
	}
	_, _, err := net.SplitHostPort(cfg.DBHost)
	if err != nil {
		return fmt.Errorf("invalid dbhost '%v': %v", cfg.DBHost, err)
	}

	if cfg.usesDB(dbTypeMySQL) {
		// Pull the password from the env variable
		cfg.DBPass = os.Getenv(envDBPass)
		if cfg.DBPass == "" {
			return fmt.Errorf("dbpass not found; you must provide "+
				"the database password for the %v user in the env "+
				"variable %v", appName, envDBPass)
		}
	}

	if cfg.usesDB(dbTypeCockroachDB) {
		switch {
		case cfg.DBRootCert == "":
			return fmt.Errorf("dbrootcert param is required")
		case cfg.DBCert == "":
			return fmt.Errorf("dbcert param is required")
		case cfg.DBKey == "":
			return fmt.Errorf("dbkey param is required")
		}
		cfg.DBRootCert = util.CleanAndExpandPath(cfg.DBRootCert)
		cfg.DBCert = util.CleanAndExpandPath(cfg.DBCert)
		cfg.DBKey = util.CleanAndExpandPath(cfg.DBKey)
	}

	if cfg.SessionDB == dbTypeCockroachDB {
		if cfg.EncryptionKey == "" {
			return fmt.Errorf("encryptionkey param is required")
		}
		cfg.EncryptionKey = util.CleanAndExpandPath(cfg.EncryptionKey)
		if !util.FileExists(cfg.EncryptionKey) {
			return fmt.Errorf("encryption key not found: %v",
				cfg.EncryptionKey)
		}
	}

	return nil
}

// createDefaultConfigFile copies the sample config file to the given
// destination path.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	// Create config file at the provided path.
	dest, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	_, err = dest.WriteString(sampleConfig)
	return err
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any
	// delimiters, treat it as the log level for all
	// subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {
		// Validate debug log level
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level "+
				"[%v] is invalid", debugLevel)
		}

		// Change the logging level for all subsystems
		logger.SetLogLevels(debugLevel)

		return nil
	}

	// Supported subsystems
	subsystems := make(map[string]struct{})
	for _, v := range logger.SupportedSubsystems() {
		subsystems[v] = struct{}{}
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem
		if _, exists := subsystems[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, logger.SupportedSubsystems())
		}

		// Validate log level
		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		logger.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether the logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := slog.LevelFromString(logLevel)
	return ok
}
