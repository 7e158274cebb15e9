package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config は実行時の設定
type Config struct {
	Addr           string        // デモサーバーの待受アドレス
	Workers        int           // ワーカー数
	MaxConnections int           // 受け付ける接続数の上限（0で無制限）
	Root           string        // 静的ファイルのディレクトリ
	SleepDelay     time.Duration // /sleep ルートの待機時間
	ReadTimeout    time.Duration // リクエスト行の読み取りタイムアウト
	AdminAddr      string        // 管理APIの待受アドレス（空で無効）
	LogLevel       string
	LogFormat      string
}

// Default はデフォルト設定を返す
func Default() Config {
	return Config{
		Addr:        "127.0.0.1:7878",
		Workers:     4,
		Root:        "www",
		SleepDelay:  5 * time.Second,
		ReadTimeout: 10 * time.Second,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max_connections must be non-negative")
	}
	if c.SleepDelay < 0 {
		return fmt.Errorf("sleep_delay must be non-negative")
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must be non-negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.LogFormat)
	}
	return nil
}

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Admin  AdminConfig  `yaml:"admin" json:"admin"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// ServerConfig はデモサーバーとプールの設定
type ServerConfig struct {
	Addr           string `yaml:"addr" json:"addr"`
	Workers        int    `yaml:"workers" json:"workers"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	Root           string `yaml:"root" json:"root"`
	SleepDelay     string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout"`
}

// AdminConfig は管理APIの設定
type AdminConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate はファイル設定を検証する。0 や空文字はデフォルト値を意味する
func (f *FileConfig) Validate() error {
	sc := f.Server

	if sc.Workers < 0 {
		return fmt.Errorf("server.workers must be non-negative")
	}
	if sc.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}

	return nil
}

// ToConfig はFileConfigをデフォルト値に重ねてConfigに変換する
func (f *FileConfig) ToConfig() (Config, error) {
	sc := f.Server
	config := Default()

	if sc.Addr != "" {
		config.Addr = sc.Addr
	}
	if sc.Workers > 0 {
		config.Workers = sc.Workers
	}
	if sc.MaxConnections > 0 {
		config.MaxConnections = sc.MaxConnections
	}
	if sc.Root != "" {
		config.Root = sc.Root
	}
	if sc.SleepDelay != "" {
		d, err := time.ParseDuration(sc.SleepDelay)
		if err != nil {
			return config, fmt.Errorf("invalid sleep_delay: %w", err)
		}
		config.SleepDelay = d
	}
	if sc.ReadTimeout != "" {
		d, err := time.ParseDuration(sc.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read_timeout: %w", err)
		}
		config.ReadTimeout = d
	}

	if f.Admin.Addr != "" {
		config.AdminAddr = f.Admin.Addr
	}
	if f.Log.Level != "" {
		config.LogLevel = f.Log.Level
	}
	if f.Log.Format != "" {
		config.LogFormat = f.Log.Format
	}

	return config, nil
}

// viper で参照するキー
const (
	KeyAddr           = "addr"
	KeyWorkers        = "workers"
	KeyMaxConnections = "max-connections"
	KeyRoot           = "root"
	KeySleepDelay     = "sleep-delay"
	KeyReadTimeout    = "read-timeout"
	KeyAdminAddr      = "admin-addr"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
)

// Override は環境変数やフラグで明示的に設定された値で上書きする
func (c *Config) Override(v *viper.Viper) {
	if v.IsSet(KeyAddr) {
		c.Addr = v.GetString(KeyAddr)
	}
	if v.IsSet(KeyWorkers) {
		c.Workers = v.GetInt(KeyWorkers)
	}
	if v.IsSet(KeyMaxConnections) {
		c.MaxConnections = v.GetInt(KeyMaxConnections)
	}
	if v.IsSet(KeyRoot) {
		c.Root = v.GetString(KeyRoot)
	}
	if v.IsSet(KeySleepDelay) {
		c.SleepDelay = v.GetDuration(KeySleepDelay)
	}
	if v.IsSet(KeyReadTimeout) {
		c.ReadTimeout = v.GetDuration(KeyReadTimeout)
	}
	if v.IsSet(KeyAdminAddr) {
		c.AdminAddr = v.GetString(KeyAdminAddr)
	}
	if v.IsSet(KeyLogLevel) {
		c.LogLevel = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFormat) {
		c.LogFormat = v.GetString(KeyLogFormat)
	}
}

// Load はデフォルト値、設定ファイル、環境変数・フラグの順に重ねて設定を構築する
func Load(path string, v *viper.Viper) (Config, error) {
	cfg := Default()

	if path != "" {
		fileConfig, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("config validation failed: %w", err)
		}
		cfg, err = fileConfig.ToConfig()
		if err != nil {
			return cfg, err
		}
	}

	if v != nil {
		cfg.Override(v)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewViper は WEBPOOL_ 接頭辞の環境変数を読む viper を返す
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WEBPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}
