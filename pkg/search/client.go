package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-news-scraper/pkg/retry"
)

const (
	// DefaultEndpoint は SerpAPI の検索エンドポイントです。
	DefaultEndpoint = "https://serpapi.com/search.json"
	// PageSize は、1回のリクエストで取得する検索結果の件数です。
	PageSize = 10
	// DefaultPause は、検索結果ページの取得の間に挟む待機時間です。
	DefaultPause = 1 * time.Second
	// DefaultMaxPages は、1回の検索で辿る検索結果ページ数の上限です。
	DefaultMaxPages = 30
)

var (
	// ErrMissingAPIKey は、APIキーが設定されていない場合に返されます。
	ErrMissingAPIKey = errors.New("SerpAPI のAPIキーが設定されていません (SERPAPI_KEY)")

	errDecode = errors.New("検索結果のデコードに失敗しました")
)

// Fetcher は、検索APIのレスポンス本文を取得する依存です。
// *httpkit.Client はこのインターフェースを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// response は SerpAPI のレスポンスのうち、利用するフィールドだけを表します。
type response struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Client は、検索インデックスから候補URLを収集します。
type Client struct {
	fetcher  Fetcher
	apiKey   string
	endpoint string
	pause    time.Duration
	maxPages int
	retryCfg retry.Config
	logger   *slog.Logger
}

// Option は Client の設定を行うための関数型です。
type Option func(*Client)

// WithEndpoint は検索エンドポイントを差し替えます。
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithPause はページ間の待機時間を設定します。
func WithPause(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pause = d
		}
	}
}

// WithMaxPages は辿る検索結果ページ数の上限を設定します。
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRetryConfig は一時的な失敗に対するリトライ設定を指定します。
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient は新しい Client を作成します。apiKey が空の場合は ErrMissingAPIKey を返します。
func NewClient(fetcher Fetcher, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		fetcher:  fetcher,
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		pause:    DefaultPause,
		maxPages: DefaultMaxPages,
		retryCfg: retry.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "search")
	return c, nil
}

// Search は query の検索結果を PageSize 件ずつ辿り、記事URLを初出順に重複なく返します。
// API がエラーを返すか、結果が空になった時点で終了します。
// 途中で取得に失敗した場合は、それまでに集めたURLとエラーを両方返します。
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	c.logger.Info("search started", "query", query)

	var (
		urls = make([]string, 0, PageSize)
		seen = make(map[string]struct{})
	)

	for page := 0; page < c.maxPages; page++ {
		if page > 0 {
			if err := sleep(ctx, c.pause); err != nil {
				return urls, fmt.Errorf("検索が中断されました: %w", err)
			}
		}

		start := page * PageSize
		resp, err := c.fetchPage(ctx, query, start)
		if err != nil {
			return urls, err
		}

		if resp.Error != "" {
			// SerpAPI は結果が尽きた場合もエラーとして報告する
			c.logger.Warn("search api returned error", "start", start, "error", resp.Error)
			break
		}
		if len(resp.OrganicResults) == 0 {
			c.logger.Debug("last result page reached", "start", start)
			break
		}

		for _, r := range resp.OrganicResults {
			if r.Link == "" {
				continue
			}
			if _, ok := seen[r.Link]; ok {
				continue
			}
			seen[r.Link] = struct{}{}
			urls = append(urls, r.Link)
		}
		c.logger.Debug("result page fetched", "start", start, "total", len(urls))
	}

	c.logger.Info("search finished", "query", query, "urls", len(urls))
	return urls, nil
}

// fetchPage は1ページ分の検索結果を取得します。取得失敗はリトライされますが、デコード失敗はリトライしません。
func (c *Client) fetchPage(ctx context.Context, query string, start int) (*response, error) {
	reqURL, err := c.pageURL(query, start)
	if err != nil {
		return nil, err
	}

	var resp response
	op := func() error {
		body, err := c.fetcher.FetchBytes(ctx, reqURL)
		if err != nil {
			return err
		}
		resp = response{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("%w: %w", errDecode, err)
		}
		return nil
	}
	// 4xx (APIキー不正など) とデコード失敗は再試行しても結果が変わらない
	shouldRetry := func(err error) bool {
		return !errors.Is(err, errDecode) && !httpkit.IsNonRetryableError(err) && ctx.Err() == nil
	}

	if err := retry.Do(ctx, c.retryCfg, fmt.Sprintf("search page (start=%d)", start), op, shouldRetry); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) pageURL(query string, start int) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("検索エンドポイントが不正です: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("num", strconv.Itoa(PageSize))
	params.Set("api_key", c.apiKey)
	params.Set("engine", "google")
	params.Set("hl", "id")
	params.Set("gl", "id")
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// sleep は d だけ待機します。ctx が先に終了した場合はそのエラーを返します。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
