package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/pkg/logging"
)

const Production = "production"

const (
	ModeRemote     = "remote"
	ModeMemory     = "memory"
	ModePostgres   = "postgres"
	ModeFilesystem = "filesystem"
)

var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the env files that exist and returns how many were loaded.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"portal"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// BackendOptions selects and configures the hosted auth/tables/storage provider.
type BackendOptions struct {
	// remote or memory
	Mode    string `env:"BACKEND_MODE" envDefault:"remote"`
	URL     string `env:"BACKEND_URL"`
	AnonKey string `env:"BACKEND_ANON_KEY"`
	// remote, postgres or memory
	TablesMode string `env:"BACKEND_TABLES_MODE" envDefault:"remote"`
	// remote, filesystem or memory
	StorageMode  string        `env:"BACKEND_STORAGE_MODE" envDefault:"remote"`
	StoragePath  string        `env:"BACKEND_STORAGE_PATH" envDefault:"uploads"`
	AvatarBucket string        `env:"AVATAR_BUCKET" envDefault:"avatars"`
	Timeout      time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	MaxRetries   uint64        `env:"BACKEND_MAX_RETRIES" envDefault:"2"`
}

func (b *BackendOptions) Validate() error {
	if b.Mode != ModeRemote && b.Mode != ModeMemory {
		return fmt.Errorf("backend Mode must be 'remote' or 'memory', got '%s'", b.Mode)
	}
	switch b.TablesMode {
	case ModeRemote, ModePostgres, ModeMemory:
	default:
		return fmt.Errorf("backend TablesMode must be 'remote', 'postgres' or 'memory', got '%s'", b.TablesMode)
	}
	switch b.StorageMode {
	case ModeRemote, ModeFilesystem, ModeMemory:
	default:
		return fmt.Errorf("backend StorageMode must be 'remote', 'filesystem' or 'memory', got '%s'", b.StorageMode)
	}
	needsRemote := b.Mode == ModeRemote || b.TablesMode == ModeRemote || b.StorageMode == ModeRemote
	if needsRemote && (b.URL == "" || b.AnonKey == "") {
		return fmt.Errorf("BACKEND_URL and BACKEND_ANON_KEY are required for remote mode")
	}
	return nil
}

type EventLogOptions struct {
	// Empty means DEBUG outside production and INFO in production.
	MinLevel       string        `env:"EVENT_LOG_MIN_LEVEL"`
	Table          string        `env:"EVENT_LOG_TABLE" envDefault:"logs"`
	QueueSize      int           `env:"EVENT_LOG_QUEUE_SIZE" envDefault:"1024"`
	PersistTimeout time.Duration `env:"EVENT_LOG_PERSIST_TIMEOUT" envDefault:"5s"`
	// Comma separated path prefixes that bypass the session middleware in addition to the static defaults.
	ExcludedPaths string `env:"EVENT_LOG_EXCLUDED_PATHS" envDefault:"/health"`
	// Optional YAML file with exclusion rules.
	ExclusionsPath string `env:"EVENT_LOG_EXCLUSIONS_PATH"`
}

// Validate checks the event log configuration. Level names match the ones
// the event logger accepts.
func (e *EventLogOptions) Validate() error {
	if e.QueueSize < 0 {
		return fmt.Errorf("EVENT_LOG_QUEUE_SIZE must be non-negative, got %d", e.QueueSize)
	}
	if e.MinLevel != "" {
		switch strings.ToUpper(strings.TrimSpace(e.MinLevel)) {
		case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		default:
			return fmt.Errorf("EVENT_LOG_MIN_LEVEL must be one of DEBUG, INFO, WARN or ERROR, got '%s'", e.MinLevel)
		}
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"portal"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	AuthRPM   int    `env:"RATE_LIMIT_AUTH_RPM" envDefault:"20"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.AuthRPM < 0 {
		return fmt.Errorf("rate limit AuthRPM must be non-negative, got %d", r.AuthRPM)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	Backend       BackendOptions
	EventLog      EventLogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	Domain           string `env:"DOMAIN" envDefault:"localhost"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:3200"`
	AllowedOrigins   string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"50"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"200"`
	MaxUploadSize    int64  `env:"MAX_UPLOAD_SIZE" envDefault:"5242880"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH"`
	// Looked up on every request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader     string        `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	AccessCookieKey  string        `env:"ACCESS_COOKIE_KEY" envDefault:"sb-access-token"`
	RefreshCookieKey string        `env:"REFRESH_COOKIE_KEY" envDefault:"sb-refresh-token"`
	SessionDuration  time.Duration `env:"SESSION_DURATION" envDefault:"720h"`
	LoginPath        string        `env:"LOGIN_PATH" envDefault:"/login"`

	logFile *os.File
	logger  *logrus.Logger
}

// Load reads the given env files (DefaultEnvFiles when none are given),
// parses the environment and builds the process logger.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) IsProduction() bool {
	return c.GoAppEnvironment == Production
}

func (c *Configuration) Scheme() string {
	if c.IsProduction() {
		return "https"
	}
	return "http"
}

// ExcludedPathPrefixes returns the configured extra exclusion prefixes.
func (c *Configuration) ExcludedPathPrefixes() []string {
	return SplitList(c.EventLog.ExcludedPaths)
}

func (c *Configuration) CorsOrigins() []string {
	return SplitList(c.AllowedOrigins)
}

func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend configuration error: %w", err)
	}
	if err := c.EventLog.Validate(); err != nil {
		return fmt.Errorf("event log configuration error: %w", err)
	}

	if c.LogPath != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.IsProduction() {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	if os.Getenv("ORIGIN") == "" {
		if c.GoAppEnvironment == "development" {
			c.Origin = fmt.Sprintf("%s://%s:%d", c.Scheme(), c.Domain, c.ServerPort)
		} else {
			c.Origin = fmt.Sprintf("%s://%s", c.Scheme(), c.Domain)
		}
	}
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
