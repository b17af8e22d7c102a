package config

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
)

const (
	// ConfigFileName is the config file base name, without extension.
	ConfigFileName = "scm"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SCM"

	// DefaultAddress is the default HTTP listen address.
	DefaultAddress = ":8080"

	// DefaultAppURL is the default public origin of the web app.
	DefaultAppURL = "http://localhost:3000"
)

// Config is the complete scm-web configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Live     LiveConfig     `mapstructure:"live"`
	Session  SessionConfig  `mapstructure:"session"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`

	// configPath is the file the config was read from, if any.
	configPath string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// RegistryConfig locates the component repository.
type RegistryConfig struct {
	Owner       string        `mapstructure:"owner"`
	Repo        string        `mapstructure:"repo"`
	Branch      string        `mapstructure:"branch"`
	TreeTTL     time.Duration `mapstructure:"tree_ttl"`
	Concurrency int           `mapstructure:"concurrency"`
}

// GitHubConfig configures the GitHub API client.
type GitHubConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPConfig configures the API surface.
type HTTPConfig struct {
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	CacheSize      int           `mapstructure:"cache_size"`
	AppURL         string        `mapstructure:"app_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LiveConfig configures the revision feed.
type LiveConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// SessionConfig configures session cookie decoding.
type SessionConfig struct {
	Cookie string `mapstructure:"cookie"`
}

// SnapshotConfig selects where catalog snapshots are written.
type SnapshotConfig struct {
	Backend string   `mapstructure:"backend"`
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config configures the S3 snapshot store.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           DefaultAddress,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Registry: RegistryConfig{
			Owner:       "Shadcn-Component-Manager",
			Repo:        "registry",
			Branch:      "main",
			TreeTTL:     5 * time.Minute,
			Concurrency: 10,
		},
		GitHub: GitHubConfig{
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			CacheTTL:       300 * time.Second,
			CacheSize:      256,
			AppURL:         DefaultAppURL,
			AllowedOrigins: []string{"https://scm-registry.vercel.app"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Live: LiveConfig{
			Enabled:      true,
			PollInterval: time.Minute,
		},
		Session: SessionConfig{
			Cookie: "scm_session",
		},
		Snapshot: SnapshotConfig{
			Backend: "disk",
			Dir:     "snapshots",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// File is an explicit config file. It must exist when set.
	File string

	// Dirs are searched for scm.(yaml|json|toml) when File is empty.
	// Default: the working directory.
	Dirs []string
}

// Load reads configuration from defaults, an optional file and the
// environment, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, New())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("http.app_url", EnvPrefix+"_HTTP_APP_URL", "NEXT_PUBLIC_APP_URL")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(ConfigFileName)
		dirs := opts.Dirs
		if len(dirs) == 0 {
			dirs = []string{"."}
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !stderrors.As(err, &notFound) {
			return nil, errors.New("E111").
				WithDetail(fmt.Sprintf("Failed to read config file: %v", err)).
				Wrap(err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E111").
			WithDetail(fmt.Sprintf("Failed to decode configuration: %v", err)).
			Wrap(err)
	}
	cfg.configPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("registry.owner", d.Registry.Owner)
	v.SetDefault("registry.repo", d.Registry.Repo)
	v.SetDefault("registry.branch", d.Registry.Branch)
	v.SetDefault("registry.tree_ttl", d.Registry.TreeTTL)
	v.SetDefault("registry.concurrency", d.Registry.Concurrency)

	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.base_url", d.GitHub.BaseURL)
	v.SetDefault("github.timeout", d.GitHub.Timeout)

	v.SetDefault("http.cache_ttl", d.HTTP.CacheTTL)
	v.SetDefault("http.cache_size", d.HTTP.CacheSize)
	v.SetDefault("http.app_url", d.HTTP.AppURL)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("live.enabled", d.Live.Enabled)
	v.SetDefault("live.poll_interval", d.Live.PollInterval)

	v.SetDefault("session.cookie", d.Session.Cookie)

	v.SetDefault("snapshot.backend", d.Snapshot.Backend)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("snapshot.s3.bucket", d.Snapshot.S3.Bucket)
	v.SetDefault("snapshot.s3.prefix", d.Snapshot.S3.Prefix)
	v.SetDefault("snapshot.s3.region", d.Snapshot.S3.Region)
	v.SetDefault("snapshot.s3.endpoint", d.Snapshot.S3.Endpoint)
	v.SetDefault("snapshot.s3.access_key_id", d.Snapshot.S3.AccessKeyID)
	v.SetDefault("snapshot.s3.secret_access_key", d.Snapshot.S3.SecretAccessKey)
	v.SetDefault("snapshot.s3.use_path_style", d.Snapshot.S3.UsePathStyle)
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("E111").WithDetail(detail)
	}

	if c.Server.Address == "" {
		return invalid("server.address must not be empty")
	}
	if c.Registry.Owner == "" || c.Registry.Repo == "" || c.Registry.Branch == "" {
		return invalid("registry.owner, registry.repo and registry.branch are required")
	}
	if c.Registry.TreeTTL <= 0 {
		return invalid("registry.tree_ttl must be positive")
	}
	if c.Registry.Concurrency < 1 {
		return invalid("registry.concurrency must be at least 1")
	}
	if c.HTTP.CacheTTL < 0 {
		return invalid("http.cache_ttl must not be negative")
	}
	if c.HTTP.CacheSize < 1 {
		return invalid("http.cache_size must be at least 1")
	}
	if c.Live.Enabled && c.Live.PollInterval <= 0 {
		return invalid("live.poll_interval must be positive when live.enabled is set")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid(err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch c.Snapshot.Backend {
	case "disk":
		if c.Snapshot.Dir == "" {
			return invalid("snapshot.dir is required for the disk backend")
		}
	case "s3":
		if c.Snapshot.S3.Bucket == "" {
			return invalid("snapshot.s3.bucket is required for the s3 backend")
		}
	default:
		return invalid(fmt.Sprintf("snapshot.backend must be disk or s3, got %q", c.Snapshot.Backend))
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", s)
	}
	return l, nil
}

// Path returns the config file that was read, or "" when none was.
func (c *Config) Path() string {
	return c.configPath
}

// Origins returns every origin the API accepts.
func (c *Config) Origins() []string {
	out := make([]string, 0, len(c.HTTP.AllowedOrigins)+1)
	if c.HTTP.AppURL != "" {
		out = append(out, c.HTTP.AppURL)
	}
	return append(out, c.HTTP.AllowedOrigins...)
}
