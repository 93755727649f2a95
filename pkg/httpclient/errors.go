package httpclient

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge は、展開後のレスポンスボディが MaxBodySize を超えたことを示します。
// 通信エラー (KindConnect) として分類されます。
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// ErrorKind は、ページ取得の失敗原因の分類です。
type ErrorKind int

const (
	KindConnect ErrorKind = iota // DNS失敗、接続拒否などの通信エラー
	KindTimeout                  // タイムアウト
	KindStatus                   // 2xx 以外のステータスコード
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "non-success status"
	default:
		return "connect error"
	}
}

// FetchError は、Fetch が返す唯一のエラー型です。
type FetchError struct {
	URL        string
	Kind       ErrorKind
	StatusCode int // KindStatus の場合のみ
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf は、err に含まれる FetchError の分類を返します。
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
