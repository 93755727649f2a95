package pagination

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-news-scraper/pkg/extract"
	"github.com/shouni/go-news-scraper/pkg/httpclient"
)

const (
	// DefaultMaxPages は、1記事あたりに辿るページ数の上限です。
	// 次ページのリンクを常に表示するサイトで無限ループしないための上限です。
	DefaultMaxPages = 50

	// NavSelector は、ページ送りのナビゲーション要素です。
	NavSelector = "div.paging-news"

	pageParam = "page"
	pageSep   = "\n"
)

// Fetcher は、続きのページを取得する機能のインターフェースです。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.Page, error)
}

// ContentExtractor は、1ページ分の本文抽出を行うインターフェースです。
type ContentExtractor interface {
	Extract(doc *goquery.Document) extract.Text
}

// Walker は、同じ記事の複数ページを順に辿り、本文を連結します。
type Walker struct {
	fetcher   Fetcher
	extractor ContentExtractor
	maxPages  int
	logger    *slog.Logger
}

// Option は Walker の設定を行うための関数型です。
type Option func(*Walker)

// WithMaxPages は、辿るページ数の上限を設定します。
func WithMaxPages(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.maxPages = n
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWalker は、新しい Walker を生成します。
func NewWalker(fetcher Fetcher, extractor ContentExtractor, opts ...Option) *Walker {
	w := &Walker{
		fetcher:   fetcher,
		extractor: extractor,
		maxPages:  DefaultMaxPages,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "pagination_walker")
	return w
}

// state は、1回の Walk 呼び出しだけが所有するページ送りの状態です。
type state struct {
	baseURL string
	page    int
	parts   []string
}

// Walk は initialDoc から抽出を始め、次ページのリンクがある限り "?page=N" を取得して本文を連結します。
// 続きのページの取得に失敗した場合は、それまでに抽出した内容をそのまま返します。
func (w *Walker) Walk(ctx context.Context, initialURL string, initialDoc *goquery.Document) string {
	st := state{baseURL: BaseURL(initialURL), page: 1}
	doc := initialDoc

	for {
		// 1. 現在のページから本文を抽出
		text := w.extractor.Extract(doc)
		if !text.Matched() {
			w.logger.Debug("no content container", "url", st.baseURL, "page", st.page)
			break
		}
		if text.Content != "" {
			st.parts = append(st.parts, text.Content)
		}

		// 2. 次ページへのリンクを確認
		next := st.page + 1
		if !HasNextLink(doc, next) {
			break
		}
		if next > w.maxPages {
			w.logger.Warn("page limit reached", "url", st.baseURL, "max_pages", w.maxPages)
			break
		}

		// 3. 次ページを取得
		nextURL := PageURL(st.baseURL, next)
		page, err := w.fetcher.Fetch(ctx, nextURL)
		if err != nil {
			w.logger.Debug("continuation page fetch failed", "url", nextURL, "error", err)
			break
		}
		nextDoc, err := page.Document()
		if err != nil {
			w.logger.Debug("continuation page parse failed", "url", nextURL, "error", err)
			break
		}

		doc = nextDoc
		st.page = next
	}

	return strings.Join(st.parts, pageSep)
}

// BaseURL は、URLからクエリ文字列とフラグメントを取り除きます。
func BaseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		base, _, _ := strings.Cut(rawURL, "?")
		return base
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// PageURL は、baseURL の n ページ目のURLを返します。
func PageURL(baseURL string, n int) string {
	return baseURL + "?" + pageParam + "=" + strconv.Itoa(n)
}

// HasNextLink は、ナビゲーション要素に n をラベルとするリンクがあるかを返します。
func HasNextLink(doc *goquery.Document, n int) bool {
	if doc == nil {
		return false
	}
	nav := doc.Find(NavSelector).First()
	if nav.Length() == 0 {
		return false
	}

	label := strconv.Itoa(n)
	found := false
	nav.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		found = strings.TrimSpace(a.Text()) == label
		return !found
	})
	return found
}
