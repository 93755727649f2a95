package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-news-scraper/pkg/article"
	"github.com/shouni/go-news-scraper/pkg/config"
	"github.com/shouni/go-news-scraper/pkg/export"
	"github.com/shouni/go-news-scraper/pkg/extract"
	"github.com/shouni/go-news-scraper/pkg/feed"
	"github.com/shouni/go-news-scraper/pkg/httpclient"
	"github.com/shouni/go-news-scraper/pkg/pagination"
	"github.com/shouni/go-news-scraper/pkg/retry"
	"github.com/shouni/go-news-scraper/pkg/scraper"
	"github.com/shouni/go-news-scraper/pkg/search"
	"github.com/shouni/go-news-scraper/pkg/types"
)

// Pipeline は、Config から組み立てたコンポーネント一式を保持します。
// 各フロントエンド (CLI など) はこれを通じてコアを呼び出します。
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	progress       []scraper.ProgressFunc
	searchEndpoint string

	articles *article.Scraper
	parallel *scraper.ParallelScraper
	apiFetch *httpkit.Client
}

// Option は Pipeline の設定を行うための関数型です。
type Option func(*Pipeline)

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProgress は、並列スクレイピングの進捗通知を受け取る関数を追加します。
func WithProgress(fn scraper.ProgressFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.progress = append(p.progress, fn)
		}
	}
}

// WithSearchEndpoint は検索APIのエンドポイントを差し替えます。
func WithSearchEndpoint(endpoint string) Option {
	return func(p *Pipeline) {
		p.searchEndpoint = endpoint
	}
}

// WithClock は出力ファイル名のタイムスタンプに使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New は、cfg を検証して依存関係を組み立てます。
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	p := &Pipeline{
		cfg:            cfg,
		logger:         slog.Default(),
		now:            time.Now,
		searchEndpoint: search.DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}

	// 1. 記事ページの取得 (リトライなし、User-Agent ローテーション)
	fetcher := httpclient.New(cfg.Timeout,
		httpclient.WithUserAgents(cfg.UserAgents),
		httpclient.WithLogger(p.logger),
	)

	// 2. 本文抽出とページ送り
	extractor := extract.NewExtractor()
	walker := pagination.NewWalker(fetcher, extractor,
		pagination.WithMaxPages(cfg.MaxPages),
		pagination.WithLogger(p.logger),
	)

	// 3. 記事単位の処理と並列実行
	p.articles = article.NewScraper(fetcher, walker, p.logger)
	scraperOpts := []scraper.Option{scraper.WithLogger(p.logger)}
	for _, fn := range p.progress {
		scraperOpts = append(scraperOpts, scraper.WithProgress(fn))
	}
	p.parallel = scraper.NewParallelScraper(p.articles, cfg.Concurrency, scraperOpts...)

	// 4. 検索API・フィード用のクライアント (リトライは呼び出し側で制御する)
	p.apiFetch = httpkit.New(cfg.Timeout, httpkit.WithMaxRetries(0))

	return p, nil
}

// ExtractURL は、単一のURLを1件の記録に変換します。
func (p *Pipeline) ExtractURL(ctx context.Context, rawURL, locationFilter string) types.ArticleRecord {
	return p.articles.Scrape(ctx, rawURL, locationFilter)
}

// ScrapeAll は、候補URLを並列にスクレイピングします。
func (p *Pipeline) ScrapeAll(ctx context.Context, urls []string, locationFilter string) []types.ArticleRecord {
	return p.parallel.ScrapeAll(ctx, urls, locationFilter)
}

// SearchClient は、設定済みの検索クライアントを返します。APIキーがない場合はエラーです。
func (p *Pipeline) SearchClient() (*search.Client, error) {
	return search.NewClient(p.apiFetch, p.cfg.SerpAPIKey,
		search.WithEndpoint(p.searchEndpoint),
		search.WithPause(p.cfg.SearchPause),
		search.WithRetryConfig(retry.Config{
			MaxRetries:      p.cfg.SearchRetries,
			InitialInterval: retry.DefaultInterval,
			MaxInterval:     retry.DefaultInterval,
			Multiplier:      1,
		}),
		search.WithLogger(p.logger),
	)
}

// FeedParser は、RSS/Atom フィードのパーサーを返します。
func (p *Pipeline) FeedParser() *feed.Parser {
	return feed.NewParser(p.apiFetch)
}

// SearchJob は、検索から保存までの一連の処理の入力です。
type SearchJob struct {
	Query    search.Query
	Location string
	Formats  []export.Format // 空の場合は DefaultFormats
}

// DefaultFormats は、SearchJob で形式が指定されていない場合の保存形式です。
var DefaultFormats = []export.Format{export.FormatXLSX, export.FormatCSV}

// SearchResult は SearchAndScrape の結果です。
type SearchResult struct {
	URLs    []string
	Records []types.ArticleRecord
	Paths   []string // 形式ごとの保存先。URLが見つからなかった場合は空
}

// SearchAndScrape は、検索で候補URLを集め、並列スクレイピングし、結果をファイルへ保存します。
// 検索が途中で失敗しても、集まったURLがあれば処理を続けます。
func (p *Pipeline) SearchAndScrape(ctx context.Context, job SearchJob) (*SearchResult, error) {
	if err := job.Query.Validate(); err != nil {
		return nil, fmt.Errorf("検索条件が不正です: %w", err)
	}

	client, err := p.SearchClient()
	if err != nil {
		return nil, err
	}

	// 1. 検索
	urls, searchErr := client.Search(ctx, search.BuildQuery(job.Query))
	if searchErr != nil {
		if len(urls) == 0 {
			return nil, fmt.Errorf("検索に失敗しました: %w", searchErr)
		}
		p.logger.Warn("search ended early, continuing with partial results", "urls", len(urls), "error", searchErr)
	}

	result := &SearchResult{URLs: urls}
	if len(urls) == 0 {
		p.logger.Info("no candidate urls found")
		return result, nil
	}

	// 2. 並列スクレイピング
	result.Records = p.ScrapeAll(ctx, urls, job.Location)

	// 3. 保存 (同じタイムスタンプで形式ごとに1ファイル)
	formats := job.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	now := p.now()
	for _, format := range formats {
		path := export.OutputPath(p.cfg.OutputDir, job.Query.Site, job.Query.Keyword, format, now)
		if err := export.SaveFile(path, format, result.Records); err != nil {
			return result, fmt.Errorf("結果の保存に失敗しました (%s): %w", format, err)
		}
		result.Paths = append(result.Paths, path)
		p.logger.Info("results saved", "path", path, "records", len(result.Records))
	}
	return result, nil
}
