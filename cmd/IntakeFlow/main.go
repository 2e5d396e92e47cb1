package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/IntakeFlow/internal/api"
	"github.com/BTreeMap/IntakeFlow/internal/genai"
	"github.com/BTreeMap/IntakeFlow/internal/lockfile"
	"github.com/BTreeMap/IntakeFlow/internal/store"
	"github.com/BTreeMap/IntakeFlow/internal/twiliowhatsapp"
	"github.com/BTreeMap/IntakeFlow/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for IntakeFlow state data.
	DefaultStateDir = "/var/lib/intakeflow"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "intakeflow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		os.Exit(1)
	}

	// One instance per state directory; the SQLite store must not be shared.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	twilioOpts := buildTwilioOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping IntakeFlow with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"genai_disabled", *flags.disableGenAI)
	if err := api.Run(storeOpts, genaiOpts, twilioOpts, apiOpts); err != nil {
		slog.Error("IntakeFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("IntakeFlow exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DBDriver      string
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	TwilioSID     string
	TwilioToken   string
	TwilioFrom    string
	APIAddr       string
	SweepSchedule string
	DisableGenAI  bool
	Debug         bool
}

// Flags holds command line flag values.
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	openaiKey     *string
	twilioSID     *string
	twilioToken   *string
	twilioFrom    *string
	apiAddr       *string
	sweepSchedule *string
	disableGenAI  *bool
}

// initializeLogger sets up structured logging; INTAKE_DEBUG raises the level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("INTAKE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and a
// .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DBDriver:      os.Getenv("INTAKE_DB_DRIVER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("INTAKE_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		TwilioSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:    os.Getenv("TWILIO_FROM_NUMBER"),
		APIAddr:       os.Getenv("API_ADDR"),
		SweepSchedule: os.Getenv("SESSION_SWEEP_SCHEDULE"),
		DisableGenAI:  util.ParseBoolEnv("INTAKE_DISABLE_GENAI", false),
		Debug:         util.ParseBoolEnv("INTAKE_DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No INTAKE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"INTAKE_DB_DRIVER", config.DBDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTAKE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"API_ADDR", config.APIAddr,
		"SESSION_SWEEP_SCHEDULE", config.SweepSchedule)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "Directory for IntakeFlow state data"),
		dbDriver:      flag.String("db-driver", config.DBDriver, "Conversation store driver (sqlite3, postgres, memory)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "Database DSN (file path for SQLite, URL for Postgres)"),
		openaiKey:     flag.String("openai-key", config.OpenAIKey, "OpenAI API key"),
		twilioSID:     flag.String("twilio-sid", config.TwilioSID, "Twilio account SID"),
		twilioToken:   flag.String("twilio-token", config.TwilioToken, "Twilio auth token"),
		twilioFrom:    flag.String("twilio-from", config.TwilioFrom, "Twilio WhatsApp sender number"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API listen address"),
		sweepSchedule: flag.String("sweep-schedule", config.SweepSchedule, "Cron expression for the idle-session sweep"),
		disableGenAI:  flag.Bool("disable-genai", config.DisableGenAI, "Disable the completion gateway"),
	}
	flag.Parse()
	return flags
}

func buildStoreOptions(flags Flags) []store.Option {
	var opts []store.Option
	if *flags.dbDSN != "" {
		opts = append(opts, store.WithDSN(*flags.dbDSN))
	}
	return opts
}

func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

func buildTwilioOptions(flags Flags) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if *flags.twilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(*flags.twilioToken))
	}
	if *flags.twilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromNumber(*flags.twilioFrom))
	}
	return opts
}

func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.dbDriver != "" {
		opts = append(opts, api.WithDBDriver(*flags.dbDriver))
	}
	if *flags.sweepSchedule != "" {
		opts = append(opts, api.WithSweepSchedule(*flags.sweepSchedule))
	}
	if *flags.disableGenAI {
		opts = append(opts, api.WithGenAIDisabled())
	}
	return opts
}
