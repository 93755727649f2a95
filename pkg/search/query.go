package search

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout は、after: / before: 演算子に渡す日付の書式です。
const DateLayout = "2006-01-02"

// Query は、サイト内検索クエリの構成要素です。
type Query struct {
	Keyword string
	Site    string    // 例: detik.com
	Start   time.Time // after: に渡す日付
	End     time.Time // before: に渡す日付
	Exact   bool      // true の場合キーワードを引用符で囲み完全一致検索にする
}

// Validate は、クエリを組み立てられるかを検証します。
func (q Query) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return errors.New("keyword must not be empty")
	}
	if strings.TrimSpace(q.Site) == "" {
		return errors.New("site must not be empty")
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return errors.New("start and end dates are required")
	}
	if q.End.Before(q.Start) {
		return fmt.Errorf("end date %s is before start date %s", q.End.Format(DateLayout), q.Start.Format(DateLayout))
	}
	return nil
}

// BuildQuery は `keyword site:S after:YYYY-MM-DD before:YYYY-MM-DD` 形式の検索文字列を返します。
func BuildQuery(q Query) string {
	keyword := strings.TrimSpace(q.Keyword)
	if q.Exact {
		keyword = `"` + keyword + `"`
	}
	return fmt.Sprintf("%s site:%s after:%s before:%s",
		keyword,
		strings.TrimSpace(q.Site),
		q.Start.Format(DateLayout),
		q.End.Format(DateLayout),
	)
}

// ParseDate は YYYY-MM-DD 形式の日付を解析します。存在しない日付 (2月30日など) はエラーになります。
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("日付の形式が不正です (YYYY-MM-DD): %q: %w", s, err)
	}
	return t, nil
}
