package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher は Parser.client が依存する Fetcher のモックです。
type MockFetcher struct {
	FetchBytesFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return m.FetchBytesFunc(ctx, url)
}

const validRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Berita Terkini</title>
    <link>https://news.example.com/</link>
    <item>
      <title>Banjir di Jakarta</title>
      <link>https://news.example.com/read/1</link>
    </item>
    <item>
      <title>Banjir di Jakarta (duplikat)</title>
      <link>https://news.example.com/read/1</link>
    </item>
    <item>
      <title>Tanpa link</title>
      <guid>https://news.example.com/read/2</guid>
    </item>
  </channel>
</rss>`

func TestFetchAndParse(t *testing.T) {
	ctx := context.Background()
	testURL := "https://news.example.com/rss"

	tests := []struct {
		name          string
		fetch         func(ctx context.Context, url string) ([]byte, error)
		expectedTitle string
		errorContains string
	}{
		{
			name: "成功ケース_有効なRSS",
			fetch: func(ctx context.Context, url string) ([]byte, error) {
				if url != testURL {
					return nil, errors.New("unexpected url: " + url)
				}
				return []byte(validRSS), nil
			},
			expectedTitle: "Berita Terkini",
		},
		{
			name: "エラーケース_フィード取得失敗",
			fetch: func(ctx context.Context, url string) ([]byte, error) {
				return nil, errors.New("HTTPエラー: 500 Internal Server Error")
			},
			errorContains: "フィードの取得失敗",
		},
		{
			name: "エラーケース_パース失敗",
			fetch: func(ctx context.Context, url string) ([]byte, error) {
				return []byte(`<invalid><tag>`), nil
			},
			errorContains: "RSSフィードのパース失敗",
		},
		{
			name: "エッジケース_空ボディ",
			fetch: func(ctx context.Context, url string) ([]byte, error) {
				return []byte(""), nil
			},
			errorContains: "RSSフィードのパース失敗",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Parser{client: &MockFetcher{FetchBytesFunc: tt.fetch}}

			feed, err := p.FetchAndParse(ctx, testURL)

			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, feed)
			assert.Equal(t, tt.expectedTitle, feed.Title)
		})
	}
}

func TestCandidateURLs(t *testing.T) {
	p := &Parser{client: &MockFetcher{FetchBytesFunc: func(ctx context.Context, url string) ([]byte, error) {
		return []byte(validRSS), nil
	}}}

	urls, err := p.CandidateURLs(context.Background(), "https://news.example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://news.example.com/read/1",
		"https://news.example.com/read/2",
	}, urls)
}

func TestCandidateURLs_FetchError(t *testing.T) {
	p := &Parser{client: &MockFetcher{FetchBytesFunc: func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}}

	urls, err := p.CandidateURLs(context.Background(), "https://news.example.com/rss")
	assert.Error(t, err)
	assert.Nil(t, urls)
}

func TestNewParser_WithHTTPServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(validRSS))
	}))
	defer server.Close()

	p := NewParser(httpkit.New(5 * time.Second))
	feed, err := p.FetchAndParse(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 3)
}
