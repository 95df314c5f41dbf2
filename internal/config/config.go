// Package config は環境変数と任意のYAMLファイルからアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseDriver         string
	DatabaseURL            string
	DatabaseConnectTimeout time.Duration
	DatabaseAutoMigrate    bool

	// OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral      int
	RateLimitRegistration int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// 必須キー
var (
	requiredAll = []string{
		"DATABASE_URL",
		"GITHUB_CLIENT_ID",
		"GITHUB_CLIENT_SECRET",
		"GITHUB_CALLBACK_URL",
		"BASE_URL",
	}
	requiredDatabase = []string{"DATABASE_URL"}
)

// fileConfig はYAML設定ファイルの構造。
// 値は文字列として受け取り、環境変数と同じ規則で解釈する。
type fileConfig struct {
	Database struct {
		Driver         string `yaml:"driver"`
		URL            string `yaml:"url"`
		ConnectTimeout string `yaml:"connect_timeout"`
		AutoMigrate    string `yaml:"auto_migrate"`
	} `yaml:"database"`
	GitHub struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		CallbackURL  string `yaml:"callback_url"`
	} `yaml:"github"`
	Session struct {
		MaxAge          string `yaml:"max_age"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"session"`
	RateLimit struct {
		General      string `yaml:"general"`
		Registration string `yaml:"registration"`
	} `yaml:"rate_limit"`
	Server struct {
		Port              string `yaml:"port"`
		BaseURL           string `yaml:"base_url"`
		CookieDomain      string `yaml:"cookie_domain"`
		CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// values は環境変数名をキーとしたファイル設定値を返す。空の値は含まない。
func (f *fileConfig) values() map[string]string {
	all := map[string]string{
		"DATABASE_DRIVER":          f.Database.Driver,
		"DATABASE_URL":             f.Database.URL,
		"DATABASE_CONNECT_TIMEOUT": f.Database.ConnectTimeout,
		"DATABASE_AUTO_MIGRATE":    f.Database.AutoMigrate,
		"GITHUB_CLIENT_ID":         f.GitHub.ClientID,
		"GITHUB_CLIENT_SECRET":     f.GitHub.ClientSecret,
		"GITHUB_CALLBACK_URL":      f.GitHub.CallbackURL,
		"SESSION_MAX_AGE":          f.Session.MaxAge,
		"SESSION_CLEANUP_INTERVAL": f.Session.CleanupInterval,
		"RATE_LIMIT_GENERAL":       f.RateLimit.General,
		"RATE_LIMIT_REGISTRATION":  f.RateLimit.Registration,
		"SERVER_PORT":              f.Server.Port,
		"BASE_URL":                 f.Server.BaseURL,
		"COOKIE_DOMAIN":            f.Server.CookieDomain,
		"CORS_ALLOWED_ORIGIN":      f.Server.CORSAllowedOrigin,
		"LOG_LEVEL":                f.Log.Level,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// LoadFile はYAML設定ファイルを読み込み、環境変数名をキーとした値を返す。
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc.values(), nil
}

// Load はAPIサーバー用の設定を読み込む。
// pathが空の場合はCONFIG_FILE環境変数のファイルを使用し、それも空ならファイルを読まない。
// 環境変数はファイルの値より優先される。必須値が不足している場合は不足キーを全て含むエラーを返す。
func Load(path string) (*Config, error) {
	return load(path, requiredAll)
}

// LoadDatabase はDB接続のみを必要とするコマンド（migrate、worker）用の設定を読み込む。
func LoadDatabase(path string) (*Config, error) {
	return load(path, requiredDatabase)
}

func load(path string, required []string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	fileValues := map[string]string{}
	if path != "" {
		v, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		fileValues = v
	}

	src := source{file: fileValues}

	var missing []string
	for _, key := range required {
		if src.get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required configuration values are not set: %v", missing)
	}

	cfg := &Config{
		DatabaseDriver:         src.stringOr("DATABASE_DRIVER", "postgres"),
		DatabaseURL:            src.get("DATABASE_URL"),
		DatabaseConnectTimeout: src.durationOr("DATABASE_CONNECT_TIMEOUT", 10*time.Second),
		DatabaseAutoMigrate:    src.boolOr("DATABASE_AUTO_MIGRATE", false),
		GitHubClientID:         src.get("GITHUB_CLIENT_ID"),
		GitHubClientSecret:     src.get("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:      src.get("GITHUB_CALLBACK_URL"),
		SessionMaxAge:          src.intOr("SESSION_MAX_AGE", 86400),
		SessionCleanupInterval: src.durationOr("SESSION_CLEANUP_INTERVAL", time.Hour),
		RateLimitGeneral:       src.intOr("RATE_LIMIT_GENERAL", 120),
		RateLimitRegistration:  src.intOr("RATE_LIMIT_REGISTRATION", 10),
		ServerPort:             src.stringOr("SERVER_PORT", "8080"),
		BaseURL:                src.get("BASE_URL"),
		CookieDomain:           src.get("COOKIE_DOMAIN"),
		CORSAllowedOrigin:      src.stringOr("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		LogLevel:               strings.ToLower(src.stringOr("LOG_LEVEL", "info")),
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER: %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// source は環境変数、ファイルの順に値を解決する。
// 数値などの解釈に失敗した値はデフォルト値に置き換える。
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) stringOr(key, defaultVal string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return defaultVal
}

func (s source) intOr(key string, defaultVal int) int {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s source) boolOr(key string, defaultVal bool) bool {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func (s source) durationOr(key string, defaultVal time.Duration) time.Duration {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
