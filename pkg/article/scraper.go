package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-news-scraper/pkg/httpclient"
	"github.com/shouni/go-news-scraper/pkg/types"
)

// ErrNoContent は、ページは取得できたが本文が1段落も抽出できなかったことを示します。
var ErrNoContent = errors.New("no article content extracted")

// PanicError は、スクレイピング中に発生した予期しない panic を表します。
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected failure: %v", e.Value)
}

// Fetcher は、記事ページを取得する機能のインターフェースです。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.Page, error)
}

// Walker は、複数ページにまたがる本文を連結する機能のインターフェースです。
type Walker interface {
	Walk(ctx context.Context, initialURL string, initialDoc *goquery.Document) string
}

// Scraper は、1つのURLを1つの ArticleRecord に変換します。
type Scraper struct {
	fetcher Fetcher
	walker  Walker
	logger  *slog.Logger
}

// NewScraper は、新しい Scraper を生成します。
func NewScraper(fetcher Fetcher, walker Walker, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		fetcher: fetcher,
		walker:  walker,
		logger:  logger.With("component", "article_scraper"),
	}
}

// NormalizeURL は、AMP版のパス "/amp/" を通常のパスに置き換えます。
func NormalizeURL(rawURL string) string {
	return strings.ReplaceAll(rawURL, "/amp/", "/")
}

// Scrape は、URLを取得して記事レコードを返します。
// どのような失敗でもエラーや panic を呼び出し元へ伝播させず、代替レコードを返します。
func (s *Scraper) Scrape(ctx context.Context, rawURL, locationFilter string) (rec types.ArticleRecord) {
	url := NormalizeURL(rawURL)

	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r}
			s.logger.Error("scrape panicked", "url", url, "error", err)
			rec = types.ArticleRecord{
				Title:         types.ScrapeFailedTitle,
				URL:           url,
				Content:       "error: " + err.Error(),
				LocationMatch: types.LocationUnknown,
				Err:           err,
			}
		}
	}()

	// 1. 最初のページを取得
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Info("fetch failed", "url", url, "error", err)
		return failedRecord(url, err)
	}

	// 2. HTMLを解析してタイトルを取得
	doc, err := page.Document()
	if err != nil {
		return failedRecord(url, err)
	}
	title := extractTitle(doc)

	// 3. ページ送りを辿って本文を連結
	content := s.walker.Walk(ctx, url, doc)
	if content == "" {
		s.logger.Debug("no content extracted", "url", url)
		return types.ArticleRecord{
			Title:         title,
			URL:           url,
			Content:       types.NoContent,
			LocationMatch: types.LocationUnknown,
			Err:           ErrNoContent,
		}
	}

	// 4. 地名フィルターの判定
	return types.ArticleRecord{
		Title:         title,
		URL:           url,
		Content:       content,
		LocationMatch: types.MatchLocation(content, locationFilter),
	}
}

// failedRecord は、取得失敗時の代替レコードを返します。
func failedRecord(url string, err error) types.ArticleRecord {
	return types.ArticleRecord{
		Title:         types.NoTitle,
		URL:           url,
		Content:       types.NoContent,
		LocationMatch: types.LocationUnknown,
		Err:           err,
	}
}

// extractTitle は <title> 要素のテキストを、空白を1つにまとめて返します。
func extractTitle(doc *goquery.Document) string {
	title := textUtils.NormalizeText(doc.Find("title").First().Text())
	if title == "" {
		return types.NoTitle
	}
	return title
}
