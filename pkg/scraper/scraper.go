package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shouni/go-news-scraper/pkg/article"
	"github.com/shouni/go-news-scraper/pkg/types"
)

const (
	// DefaultMaxConcurrency は、並列スクレイピングのデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 5
)

// ArticleScraper は、1つのURLを1つのレコードに変換する処理の抽象化です。
// (article.Scraper がこれを実装します)
type ArticleScraper interface {
	Scrape(ctx context.Context, url, locationFilter string) types.ArticleRecord
}

// ProgressFunc は、1件完了するごとに呼び出される通知先です。
type ProgressFunc func(types.Progress)

// Scraper は、URLリスト全体のスクレイピングを提供するインターフェースです。
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string, locationFilter string) []types.ArticleRecord
}

// ParallelScraper は Scraper インターフェースを実装する並列処理構造体です。
type ParallelScraper struct {
	scraper        ArticleScraper
	maxConcurrency int
	observers      []ProgressFunc
	logger         *slog.Logger
}

// Option は ParallelScraper の設定を行うための関数型です。
type Option func(*ParallelScraper)

// WithProgress は、進捗の通知先を追加します。複数回指定すると、すべてに通知されます。
// 通知は結果を集約する単一のゴルーチンから順に行われます。
func WithProgress(fn ProgressFunc) Option {
	return func(s *ParallelScraper) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *ParallelScraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewParallelScraper は ParallelScraper を初期化します。
// 依存性として ArticleScraper と、最大同時実行数を受け取ります。
func NewParallelScraper(scraper ArticleScraper, maxConcurrency int, opts ...Option) *ParallelScraper {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	s := &ParallelScraper{
		scraper:        scraper,
		maxConcurrency: maxConcurrency,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "parallel_scraper")
	return s
}

// ScrapeAll は、すべてのURLを最大 maxConcurrency 件ずつ並列に処理し、完了順にレコードを返します。
// 戻り値の件数は常に len(urls) と等しくなります。順序は入力と一致しません。
func (s *ParallelScraper) ScrapeAll(ctx context.Context, urls []string, locationFilter string) []types.ArticleRecord {
	total := len(urls)
	start := time.Now()
	s.logger.Info("scrape started", "urls", total, "concurrency", s.maxConcurrency)

	resultsChan := make(chan types.ArticleRecord, total)
	sem := semaphore.NewWeighted(int64(s.maxConcurrency))

	// 1. 投入: スロットが空くまでブロックし、確保できたらゴルーチンを起動
	go func() {
		for _, u := range urls {
			if err := sem.Acquire(ctx, 1); err != nil {
				resultsChan <- abortedRecord(u, err)
				continue
			}
			go func(u string) {
				defer sem.Release(1)
				resultsChan <- s.scrapeOne(ctx, u, locationFilter)
			}(u)
		}
	}()

	// 2. 集約: 完了順に受け取り、通知
	records := make([]types.ArticleRecord, 0, total)
	failed := 0
	for completed := 1; completed <= total; completed++ {
		rec := <-resultsChan
		records = append(records, rec)
		if rec.Failed() {
			failed++
		}
		s.notify(types.Progress{Completed: completed, Total: total, Record: rec})
	}

	s.logger.Info("scrape finished",
		"urls", total,
		"failed", failed,
		"duration", time.Since(start),
	)
	return records
}

// scrapeOne は1件を処理します。ArticleScraper の実装が panic しても必ず1件のレコードを返します。
func (s *ParallelScraper) scrapeOne(ctx context.Context, url, locationFilter string) (rec types.ArticleRecord) {
	defer func() {
		if r := recover(); r != nil {
			err := &article.PanicError{Value: r}
			s.logger.Error("article scraper panicked", "url", url, "error", err)
			rec = types.ArticleRecord{
				Title:         types.ScrapeFailedTitle,
				URL:           article.NormalizeURL(url),
				Content:       "error: " + err.Error(),
				LocationMatch: types.LocationUnknown,
				Err:           err,
			}
		}
	}()
	return s.scraper.Scrape(ctx, url, locationFilter)
}

func (s *ParallelScraper) notify(p types.Progress) {
	for _, fn := range s.observers {
		fn(p)
	}
}

// abortedRecord は、処理を開始する前にコンテキストが終了したURLのレコードです。
func abortedRecord(url string, err error) types.ArticleRecord {
	err = fmt.Errorf("scrape not started: %w", err)
	return types.ArticleRecord{
		Title:         types.ScrapeFailedTitle,
		URL:           article.NormalizeURL(url),
		Content:       "error: " + err.Error(),
		LocationMatch: types.LocationUnknown,
		Err:           err,
	}
}
