package config

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	qbt "github.com/jfxdev/go-qbt-client"
)

// Config is what qbtctl needs to reach a daemon.
type Config struct {
	URL       string
	Path      string
	Username  string
	Password  string
	Timeout   time.Duration
	Proxy     string
	Relogin   bool
	RateLimit float64
	Debug     bool
}

const (
	defaultConfigPath = "~/.config/qbtctl/config.toml"
	defaultEnvFile    = ".env"
)

// Environment variables, read from the process first and then from .env.
const (
	envURL       = "QBT_URL"
	envPath      = "QBT_PATH"
	envUsername  = "QBT_USERNAME"
	envPassword  = "QBT_PASSWORD"
	envTimeout   = "QBT_TIMEOUT"
	envProxy     = "QBT_PROXY"
	envRelogin   = "QBT_RELOGIN"
	envRateLimit = "QBT_RATE_LIMIT"
	envDebug     = "QBT_DEBUG"
)

type fileConfig struct {
	URL       string  `toml:"url"`
	Path      string  `toml:"path"`
	Username  string  `toml:"username"`
	Password  string  `toml:"password"`
	Timeout   string  `toml:"timeout"`
	Proxy     string  `toml:"proxy"`
	Relogin   bool    `toml:"relogin"`
	RateLimit float64 `toml:"rate_limit"`
	Debug     bool    `toml:"debug"`
}

// Load reads the TOML config at path (or the default location), then applies
// QBT_* overrides from the environment and from a .env file in the working
// directory. A missing default config file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{
		URL:     qbt.DefaultBaseURL,
		Path:    qbt.DefaultPath,
		Timeout: qbt.DefaultRequestTimeout,
	}

	explicit := strings.TrimSpace(path) != ""
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.readFile(resolved); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, err
		}
	}

	dotenv, err := readDotEnv(defaultEnvFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(envLookup(dotenv)); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = qbt.DefaultBaseURL
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.URL); v != "" {
		c.URL = v
	}
	if v := strings.TrimSpace(raw.Path); v != "" {
		c.Path = v
	}
	c.Username = raw.Username
	c.Password = raw.Password
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse config: timeout: %w", err)
		}
		c.Timeout = d
	}
	c.Proxy = strings.TrimSpace(raw.Proxy)
	c.Relogin = raw.Relogin
	c.RateLimit = raw.RateLimit
	c.Debug = raw.Debug
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// envLookup prefers the process environment over .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(envURL); v != "" {
		c.URL = v
	}
	if v := getenv(envPath); v != "" {
		c.Path = v
	}
	if v := getenv(envUsername); v != "" {
		c.Username = v
	}
	if v := getenv(envPassword); v != "" {
		c.Password = v
	}
	if v := getenv(envProxy); v != "" {
		c.Proxy = v
	}
	if v := getenv(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envTimeout, err)
		}
		c.Timeout = d
	}
	if v := getenv(envRateLimit); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envRateLimit, err)
		}
		c.RateLimit = r
	}
	if v := getenv(envRelogin); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envRelogin, err)
		}
		c.Relogin = b
	}
	if v := getenv(envDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envDebug, err)
		}
		c.Debug = b
	}
	return nil
}

// ClientConfig converts the loaded settings into a qbt.Config.
func (c Config) ClientConfig() (qbt.Config, error) {
	out := qbt.Config{
		BaseURL:              c.URL,
		Path:                 c.Path,
		Username:             c.Username,
		Password:             c.Password,
		RequestTimeout:       c.Timeout,
		RateLimit:            c.RateLimit,
		ReloginOnAuthFailure: c.Relogin,
		Debug:                c.Debug,
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return qbt.Config{}, fmt.Errorf("invalid proxy %q: %w", c.Proxy, err)
		}
		out.Proxy = http.ProxyURL(u)
	}
	return out, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
