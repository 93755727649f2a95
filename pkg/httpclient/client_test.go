package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	// モックの設定側で *http.Response 型の nil を返すこと
	return args.Get(0).(*http.Response), args.Error(1)
}

// timeoutError は net.Error を満たすタイムアウトエラーです。
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("custom timeout", func(t *testing.T) {
		client := New(3 * time.Second)
		assert.Equal(t, 3*time.Second, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("with HTTP client option", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(time.Second, WithHTTPClient(mockClient))
		assert.Equal(t, mockClient, client.httpClient)
	})
}

func TestFetch_Success(t *testing.T) {
	agents := []string{"agent-a", "agent-b", "agent-c"}
	seen := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><head><title>Judul</title></head></html>")
	}))
	defer server.Close()

	client := New(time.Second, WithUserAgents(agents))
	page, err := client.Fetch(context.Background(), server.URL+"/berita")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, server.URL+"/berita", page.URL)
	assert.Contains(t, agents, <-seen)

	doc, err := page.Document()
	require.NoError(t, err)
	assert.Equal(t, "Judul", doc.Find("title").Text())
}

// doerFunc は関数を Doer として扱うアダプターです。
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestFetch_PicksUserAgentPerCall(t *testing.T) {
	agents := []string{"agent-a", "agent-b"}
	var got []string

	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		got = append(got, req.Header.Get("User-Agent"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("<html></html>")),
		}, nil
	})

	idx := 0
	client := New(time.Second, WithHTTPClient(doer), WithUserAgents(agents))
	client.pick = func(n int) int {
		idx++
		return idx % n
	}

	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background(), "https://example.com")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"agent-b", "agent-a"}, got)
}

func TestFetch_EmptyPoolUsesDefault(t *testing.T) {
	client := New(time.Second, WithUserAgents(nil))
	assert.Equal(t, DefaultUserAgent, client.userAgent())
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	page, err := New(time.Second).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, page)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := New(50 * time.Millisecond).Fetch(context.Background(), server.URL)
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, kind)
}

func TestFetch_TransportErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), KindConnect},
		{"net timeout", timeoutError{}, KindTimeout},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockHTTPClient)
			var resp *http.Response
			mockClient.On("Do", mock.Anything).Return(resp, tt.err)

			client := New(time.Second, WithHTTPClient(mockClient))
			page, err := client.Fetch(context.Background(), "https://example.com")
			assert.Nil(t, page)

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.expected, kind)
			assert.ErrorIs(t, err, tt.err)
			mockClient.AssertExpectations(t)
		})
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := New(time.Second).Fetch(context.Background(), "://bad url")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConnect, kind)
}

func TestFetch_DecodesCompressedBodies(t *testing.T) {
	const html = "<html><body><p>isi berita</p></body></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(html))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(html))
	require.NoError(t, bw.Close())

	tests := []struct {
		encoding string
		body     []byte
	}{
		{"gzip", gz.Bytes()},
		{"br", br.Bytes()},
		{"", []byte(html)},
	}

	for _, tt := range tests {
		t.Run("encoding="+tt.encoding, func(t *testing.T) {
			mockClient := new(MockHTTPClient)
			header := http.Header{}
			header.Set("Content-Type", "text/html; charset=utf-8")
			if tt.encoding != "" {
				header.Set("Content-Encoding", tt.encoding)
			}
			mockClient.On("Do", mock.Anything).Return(&http.Response{
				StatusCode: http.StatusOK,
				Header:     header,
				Body:       io.NopCloser(bytes.NewReader(tt.body)),
			}, nil)

			page, err := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "https://example.com")
			require.NoError(t, err)
			assert.Equal(t, html, string(page.Body))
		})
	}
}

func TestFetch_RejectsOversizedBodies(t *testing.T) {
	// 小さな gzip が上限を超えて展開されるケースと、非圧縮で上限を超えるケース
	var bomb bytes.Buffer
	gw := gzip.NewWriter(&bomb)
	_, _ = gw.Write(make([]byte, MaxBodySize+1024))
	require.NoError(t, gw.Close())
	require.Less(t, int64(bomb.Len()), MaxBodySize/100)

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip_inflates_past_limit", "gzip", bomb.Bytes()},
		{"plain_over_limit", "", bytes.Repeat([]byte("a"), int(MaxBodySize)+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockHTTPClient)
			header := http.Header{}
			header.Set("Content-Type", "text/html; charset=utf-8")
			if tt.encoding != "" {
				header.Set("Content-Encoding", tt.encoding)
			}
			mockClient.On("Do", mock.Anything).Return(&http.Response{
				StatusCode: http.StatusOK,
				Header:     header,
				Body:       io.NopCloser(bytes.NewReader(tt.body)),
			}, nil)

			page, err := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "https://example.com")
			require.Error(t, err)
			assert.Nil(t, page)
			assert.ErrorIs(t, err, ErrBodyTooLarge)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindConnect, kind)
		})
	}
}

func TestFetch_AcceptsBodyAtLimit(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), int(MaxBodySize)))),
	}, nil)

	page, err := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Len(t, page.Body, int(MaxBodySize))
}

func TestFetch_ConvertsCharset(t *testing.T) {
	// "café" を ISO-8859-1 で表現
	latin1 := []byte("<html><body><p>caf\xe9</p></body></html>")

	mockClient := new(MockHTTPClient)
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=iso-8859-1")
	mockClient.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(latin1)),
	}, nil)

	page, err := New(time.Second, WithHTTPClient(mockClient)).Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "café")
}

func TestFetchError_Error(t *testing.T) {
	statusErr := &FetchError{URL: "https://example.com", Kind: KindStatus, StatusCode: 503}
	assert.Equal(t, "fetch https://example.com: non-success status (status 503)", statusErr.Error())

	connErr := &FetchError{URL: "https://example.com", Kind: KindConnect, Err: errors.New("refused")}
	assert.Equal(t, "fetch https://example.com: connect error: refused", connErr.Error())

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
