package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-news-scraper/internal/pipeline"
	"github.com/shouni/go-news-scraper/pkg/config"
)

// --- グローバル定数 ---

const appName = "news-scraper"

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持します。
// 明示的に指定されたフラグだけが設定ファイル・環境変数の値を上書きします。
type AppFlags struct {
	ConfigPath  string // --config-file 設定ファイルのパス
	TimeoutSec  int    // --timeout 1回のHTTPフェッチのタイムアウト（秒）
	Concurrency int    // --concurrency 最大同時実行数
	MaxPages    int    // --max-pages 1記事あたりのページ数上限
	OutputDir   string // --output-dir 保存先ディレクトリ
}

var (
	Flags       AppFlags
	appPipeline *pipeline.Pipeline
)

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&Flags.ConfigPath, "config-file", "", "設定ファイル (YAML) のパス。未指定時は ./newsscraper.yaml があれば読み込みます")
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", int(config.DefaultTimeout/time.Second), "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.Concurrency, "concurrency", config.DefaultConcurrency, "最大並列実行数")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxPages, "max-pages", config.DefaultMaxPages, "1記事あたりに辿るページ数の上限")
	rootCmd.PersistentFlags().StringVar(&Flags.OutputDir, "output-dir", ".", "検索結果の保存先ディレクトリ")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	logger := newLogger(clibase.Flags.Verbose)
	slog.SetDefault(logger)

	// 1. 設定の読み込み (.env, 環境変数, 設定ファイル)
	cfg, err := config.Load(Flags.ConfigPath)
	if err != nil {
		return err
	}

	// 2. 明示されたフラグで上書き
	applyFlagOverrides(cmd, cfg)

	// 3. 依存関係の組み立て
	p, err := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithProgress(newProgressPrinter(cmd.ErrOrStderr())),
	)
	if err != nil {
		return err
	}
	appPipeline = p

	logger.Debug("configuration loaded",
		"timeout", cfg.Timeout,
		"concurrency", cfg.Concurrency,
		"max_pages", cfg.MaxPages,
		"output_dir", cfg.OutputDir,
	)
	return nil
}

// applyFlagOverrides は、コマンドラインで指定されたフラグの値を cfg に反映します。
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = Flags.Concurrency
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = Flags.MaxPages
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = Flags.OutputDir
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// GetPipeline は、PersistentPreRunE で組み立てた Pipeline を返します。
func GetPipeline() (*pipeline.Pipeline, error) {
	if appPipeline == nil {
		return nil, fmt.Errorf("パイプラインが初期化されていません")
	}
	return appPipeline, nil
}

// commandContext は、SIGINT/SIGTERM でキャンセルされるコンテキストを返します。
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// --- エントリポイント ---

// Execute は、clibase を使ってルートコマンドを構築し実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		extractCmd,
		scrapeCmd,
		searchCmd,
		feedCmd,
	)
}
