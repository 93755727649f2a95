package cmd

import (
	"fmt"
	"io"

	"github.com/shouni/go-news-scraper/pkg/scraper"
	"github.com/shouni/go-news-scraper/pkg/types"
)

// newProgressPrinter は、1件完了するごとに進捗を w へ1行出力する関数を返します。
// 通知は集約用のゴルーチンから逐次呼ばれるため、排他は不要です。
func newProgressPrinter(w io.Writer) scraper.ProgressFunc {
	return func(p types.Progress) {
		mark := "✅"
		if p.Record.Failed() {
			mark = "❌"
		}
		fmt.Fprintf(w, "%s [%d/%d] %s\n", mark, p.Completed, p.Total, p.Record.URL)
	}
}

// printSummary は、成功・失敗件数と地名フィルターの一致件数を出力します。
func printSummary(w io.Writer, records []types.ArticleRecord) {
	var failed, matched int
	for _, r := range records {
		if r.Failed() {
			failed++
		}
		if r.LocationMatch == types.LocationMatched {
			matched++
		}
	}
	fmt.Fprintln(w, "-------------------------------")
	fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件, 地名一致 %d 件\n", len(records)-failed, failed, matched)
}
