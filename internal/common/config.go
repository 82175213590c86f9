package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Worker      WorkerConfig    `toml:"worker"`
	Progress    ProgressConfig  `toml:"progress"`
	Logs        LogsConfig      `toml:"logs"`
	Exchange    ExchangeConfig  `toml:"exchange"`
	Storage     StorageConfig   `toml:"storage"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	// PollRate limits how many /api requests per second the UI may issue.
	// Progress and log polling are the hot paths.
	PollRate  float64 `toml:"poll_rate"`
	PollBurst int     `toml:"poll_burst"`
}

// WorkerConfig describes the external imagery worker executable. The worker
// is an opaque program invoked as: <executable> <command> [json-args].
type WorkerConfig struct {
	Executable    string `toml:"executable"`     // Path to the worker binary
	JobCommand    string `toml:"job_command"`    // Subcommand that starts a crawl/download run
	InvokeTimeout string `toml:"invoke_timeout"` // Timeout for one-shot worker calls, e.g. "2m"
}

// ProgressConfig describes the worker-written progress file.
type ProgressConfig struct {
	Path         string `toml:"path"`          // Progress snapshot file written by the worker
	PollInterval string `toml:"poll_interval"` // Suggested UI poll interval, e.g. "1s"
	RetryDelay   string `toml:"retry_delay"`   // Delay before re-reading a malformed file
}

// LogsConfig describes where the worker writes its log files.
type LogsConfig struct {
	Dir          string `toml:"dir"`           // Directory containing worker log files
	Prefix       string `toml:"prefix"`        // Log file name prefix, e.g. "flutter_earth_"
	DefaultLines int    `toml:"default_lines"` // Lines returned when the caller does not specify
	MaxLines     int    `toml:"max_lines"`     // Hard cap on a single tail request
}

// ExchangeConfig controls the temp-file data handoff to one-shot commands.
type ExchangeConfig struct {
	TempDir string `toml:"temp_dir"` // Directory for exchange temp files ("" = os default)
	Timeout string `toml:"timeout"`  // Timeout for the external command, e.g. "5m"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SchedulerConfig controls unattended job starts.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
	JobArgs  string `toml:"job_args"` // JSON args passed to scheduled runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in earthbridge.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:      8710,
			Host:      "localhost",
			PollRate:  20, // Generous for a single UI polling progress + logs
			PollBurst: 40,
		},
		Worker: WorkerConfig{
			Executable:    "flutter-earth-worker",
			JobCommand:    "crawl",
			InvokeTimeout: "2m",
		},
		Progress: ProgressConfig{
			Path:         "./data/progress.json",
			PollInterval: "1s",
			RetryDelay:   "150ms",
		},
		Logs: LogsConfig{
			Dir:          "./data/logs",
			Prefix:       "flutter_earth_",
			DefaultLines: 50,
			MaxLines:     2000,
		},
		Exchange: ExchangeConfig{
			TempDir: "",
			Timeout: "5m",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 3 * * *", // Daily at 03:00 when enabled
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority:
// defaults -> config file(s) -> .env file -> environment variables.
// Later files override earlier files; CLI flags are applied afterwards by
// the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env values become process env vars and are picked up by the override
	// pass below. A missing .env file is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EARTHBRIDGE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("EARTHBRIDGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EARTHBRIDGE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if exe := os.Getenv("EARTHBRIDGE_WORKER_EXECUTABLE"); exe != "" {
		config.Worker.Executable = exe
	}
	if cmd := os.Getenv("EARTHBRIDGE_WORKER_JOB_COMMAND"); cmd != "" {
		config.Worker.JobCommand = cmd
	}

	if path := os.Getenv("EARTHBRIDGE_PROGRESS_PATH"); path != "" {
		config.Progress.Path = path
	}
	if dir := os.Getenv("EARTHBRIDGE_LOGS_DIR"); dir != "" {
		config.Logs.Dir = dir
	}

	if path := os.Getenv("EARTHBRIDGE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("EARTHBRIDGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies CLI flag values over the loaded config.
// Zero values mean "flag not set".
func ApplyFlagOverrides(config *Config, port int, host string, workerExe string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if workerExe != "" {
		config.Worker.Executable = workerExe
	}
}

// ValidateSchedule validates a cron schedule expression (5-field format).
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Duration parses a duration string from config, falling back to the
// given default when the value is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
