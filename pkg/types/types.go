package types

import "strings"

const (
	// NoTitle は、タイトルを取得できなかった記録に入るプレースホルダーです。
	NoTitle = "no title found"
	// NoContent は、本文を取得できなかった記録に入るプレースホルダーです。
	NoContent = "no content found"
	// ScrapeFailedTitle は、予期しない障害で処理が中断した記録のタイトルです。
	ScrapeFailedTitle = "scrape failed"
)

// LocationMatch は、任意指定の地名フィルターの判定結果です。
type LocationMatch int

const (
	// LocationUnknown は、フィルター未指定または本文が取得できなかったことを示します。
	LocationUnknown LocationMatch = iota
	LocationMatched
	LocationNotMatched
)

// String は、CSV などに書き出す短いラベルを返します。
func (m LocationMatch) String() string {
	switch m {
	case LocationMatched:
		return "Matched"
	case LocationNotMatched:
		return "NotMatched"
	default:
		return "Unknown"
	}
}

// MatchLocation は、content に filter が含まれるかを大文字小文字を区別せずに判定します。
// filter または content が空の場合は LocationUnknown を返します。
func MatchLocation(content, filter string) LocationMatch {
	filter = strings.TrimSpace(filter)
	if filter == "" || content == "" {
		return LocationUnknown
	}
	if strings.Contains(strings.ToLower(content), strings.ToLower(filter)) {
		return LocationMatched
	}
	return LocationNotMatched
}

// ArticleRecord は、1つの候補URLに対するスクレイピング結果を保持します。
// 失敗した場合でもプレースホルダーの値が入り、原因は Err から確認できます。
// 生成後に変更されることはありません。
type ArticleRecord struct {
	Title         string
	URL           string // /amp/ 除去後のURL
	Content       string
	LocationMatch LocationMatch
	Err           error // 成功時は nil
}

// Failed は、この記録が失敗の代替レコードかどうかを返します。
func (r ArticleRecord) Failed() bool {
	return r.Err != nil
}

// Row は、永続化する4項目を固定の順序で返します。
func (r ArticleRecord) Row() []string {
	return []string{r.Title, r.URL, r.Content, r.LocationMatch.String()}
}

// RowHeader は Row に対応するヘッダーです。
var RowHeader = []string{"Title", "URL", "Content", "Location Match"}

// Progress は、1件のスクレイピングが完了するたびに通知されます。
type Progress struct {
	Completed int
	Total     int
	Record    ArticleRecord
}
