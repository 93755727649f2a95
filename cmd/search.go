package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/shouni/go-news-scraper/internal/pipeline"
	"github.com/shouni/go-news-scraper/pkg/export"
	"github.com/shouni/go-news-scraper/pkg/search"
)

var searchFlags struct {
	keyword  string
	site     string
	start    string
	end      string
	exact    bool
	location string
	formats  []string
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "検索APIで記事URLを集め、並列にスクレイピングしてファイルに保存します",
	Long: `キーワード・サイト・期間から "keyword site:S after:D before:D" 形式のクエリを組み立て、
SerpAPI で候補URLを収集します。収集したURLを並列にスクレイピングし、
<output-dir>/<サイト>/<キーワード>_<日時>.<形式> に保存します。APIキーは SERPAPI_KEY から読み込みます。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GetPipeline()
		if err != nil {
			return err
		}

		// 1. 入力の検証
		start, err := search.ParseDate(searchFlags.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := search.ParseDate(searchFlags.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		formats, err := parseFormats(searchFlags.formats)
		if err != nil {
			return err
		}

		query := search.Query{
			Keyword: searchFlags.keyword,
			Site:    searchFlags.site,
			Start:   start,
			End:     end,
			Exact:   searchFlags.exact,
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "🔍 Query: %s\n", search.BuildQuery(query))

		// 2. 検索 → スクレイピング → 保存
		ctx, cancel := commandContext(cmd)
		defer cancel()
		result, err := p.SearchAndScrape(ctx, pipeline.SearchJob{
			Query:    query,
			Location: searchFlags.location,
			Formats:  formats,
		})
		if err != nil {
			return err
		}

		// 3. 結果の出力
		out := cmd.OutOrStdout()
		if len(result.URLs) == 0 {
			fmt.Fprintln(out, "検索結果が見つかりませんでした。")
			return nil
		}
		printSummary(cmd.ErrOrStderr(), result.Records)
		for _, path := range result.Paths {
			fmt.Fprintf(out, "保存しました: %s\n", path)
		}
		return nil
	},
}

// parseFormats は、重複を除いて保存形式の一覧を解析します。
func parseFormats(values []string) ([]export.Format, error) {
	formats := make([]export.Format, 0, len(values))
	for _, v := range values {
		format, err := export.ParseFormat(v)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(formats, format) {
			formats = append(formats, format)
		}
	}
	return formats, nil
}

func init() {
	searchCmd.Flags().StringVarP(&searchFlags.keyword, "keyword", "k", "", "検索キーワード")
	searchCmd.Flags().StringVarP(&searchFlags.site, "site", "s", "", "検索対象のサイト (例: detik.com)")
	searchCmd.Flags().StringVar(&searchFlags.start, "start", "", "期間の開始日 (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchFlags.end, "end", "", "期間の終了日 (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchFlags.exact, "exact", false, "キーワードを完全一致で検索する")
	searchCmd.Flags().StringVarP(&searchFlags.location, "location", "l", "", "本文に含まれるか判定する地名")
	searchCmd.Flags().StringSliceVarP(&searchFlags.formats, "format", "f",
		[]string{string(export.FormatXLSX), string(export.FormatCSV)},
		"保存形式 (xlsx, csv, json)。カンマ区切りで複数指定できます")

	for _, name := range []string{"keyword", "site", "start", "end"} {
		_ = searchCmd.MarkFlagRequired(name)
	}
}
