package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 10 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// DefaultUserAgent は、User-Agent のプールが空の場合に使われます。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

// Doer は、標準の *http.Client.Do()と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page は、1回のGETで取得したHTMLドキュメントです。
type Page struct {
	URL        string // リダイレクト後の最終URL
	StatusCode int
	Body       []byte // UTF-8 に変換済み
}

// Document は Body を goquery.Document として解析します。
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました (URL: %s): %w", p.URL, err)
	}
	return doc, nil
}

// Client は、ページ取得 (PageFetcher) を担当します。
// リクエストごとに User-Agent をランダムに選び、リトライは行いません。
type Client struct {
	httpClient Doer
	userAgents []string
	logger     *slog.Logger
	pick       func(n int) int
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithUserAgents は User-Agent のプールを設定します。プールは読み取り専用として扱われます。
func WithUserAgents(agents []string) ClientOption {
	return func(c *Client) {
		c.userAgents = agents
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// brotli を含め、デコードは自前で行う
	transport.DisableCompression = true

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: slog.Default(),
		pick:   rand.IntN,
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With("component", "page_fetcher")
	return c
}

// userAgent はプールから1つを擬似ランダムに選びます。
func (c *Client) userAgent() string {
	if len(c.userAgents) == 0 {
		return DefaultUserAgent
	}
	return c.userAgents[c.pick(len(c.userAgents))]
}

// addCommonHeaders は共通のHTTPヘッダーを設定します。
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
}

// Fetch は、URLに対して1回だけGETリクエストを実行します。
// 失敗時のエラーは常に *FetchError です。
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindConnect, Err: err}
	}
	c.addCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 接続を再利用するため、ボディを一定量読み捨てる
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			URL:        url,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	c.logger.Debug("fetch complete",
		"url", url,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)

	return &Page{URL: finalURL, StatusCode: resp.StatusCode, Body: body}, nil
}

// readBody は、ボディをサイズ上限付きで読み込み、展開とUTF-8への変換を行います。
// 上限は展開後のサイズに適用され、超えた場合は ErrBodyTooLarge を返します。
func readBody(resp *http.Response) ([]byte, error) {
	reader, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(reader, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > MaxBodySize {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, MaxBodySize)
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		// 文字コードを判別できない場合はそのまま扱う
		return raw, nil
	}
	decoded, err := io.ReadAll(utf8Reader)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}

// decompressReader は Content-Encoding に応じた展開リーダーを返します。
func decompressReader(encoding string, r io.Reader) (io.Reader, error) {
	switch encoding {
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

// classifyTransportError は、通信エラーをタイムアウトと接続エラーに分類します。
func classifyTransportError(url string, err error) *FetchError {
	kind := KindConnect

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{URL: url, Kind: kind, Err: err}
}
