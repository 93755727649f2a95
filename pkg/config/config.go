package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultTimeout は、1回のHTTPフェッチに適用される固定タイムアウトです。
	DefaultTimeout = 10 * time.Second
	// DefaultConcurrency は、並列スクレイピングのデフォルトの最大同時実行数です。
	DefaultConcurrency = 5
	// DefaultMaxPages は、1記事あたりに辿るページ数の上限です。
	DefaultMaxPages = 50
	// DefaultSearchPause は、検索APIのページ取得の間に挟む待機時間です。
	DefaultSearchPause = 1 * time.Second

	envPrefix = "NEWSSCRAPER"
)

// DefaultUserAgents は、リクエストごとにランダムに選ばれる User-Agent のプールです。
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:85.0)",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_2 like Mac OS X)",
	"Mozilla/5.0 (iPad; CPU OS 13_6_1 like Mac OS X)",
}

// Config は、プロセス開始時に一度だけ構築され、各コンポーネントのコンストラクタへ渡される設定です。
// 構築後に書き換えてはいけません。
type Config struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgents  []string      `mapstructure:"user_agents"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxPages    int           `mapstructure:"max_pages"`

	SerpAPIKey    string        `mapstructure:"serpapi_key"`
	SearchPause   time.Duration `mapstructure:"search_pause"`
	SearchRetries uint64        `mapstructure:"search_retries"`

	OutputDir string `mapstructure:"output_dir"`
}

// DefaultConfig は、デフォルト値で埋めた Config を返します。
func DefaultConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		UserAgents:    slices.Clone(DefaultUserAgents),
		Concurrency:   DefaultConcurrency,
		MaxPages:      DefaultMaxPages,
		SearchPause:   DefaultSearchPause,
		SearchRetries: 2,
		OutputDir:     ".",
	}
}

// Load は、.env、環境変数、設定ファイルから Config を読み込みます。
// 優先順位: 環境変数 > 設定ファイル > デフォルト値
func Load(configPath string) (*Config, error) {
	// 1. .env があれば環境変数へ展開 (SERPAPI_KEY など)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	// 2. 環境変数 (NEWSSCRAPER_TIMEOUT など)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("serpapi_key", envPrefix+"_SERPAPI_KEY", "SERPAPI_KEY"); err != nil {
		return nil, fmt.Errorf("環境変数のバインドに失敗しました: %w", err)
	}

	// 3. 設定ファイル (明示されていない場合は存在すれば読む)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsscraper")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗しました: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("user_agents", cfg.UserAgents)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("max_pages", cfg.MaxPages)
	v.SetDefault("serpapi_key", cfg.SerpAPIKey)
	v.SetDefault("search_pause", cfg.SearchPause)
	v.SetDefault("search_retries", cfg.SearchRetries)
	v.SetDefault("output_dir", cfg.OutputDir)
}

// Validate は、設定値の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("user_agents must not be empty")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be >= 1, got %d", c.MaxPages)
	}
	if c.SearchPause < 0 {
		return fmt.Errorf("search_pause must be >= 0")
	}
	return nil
}
