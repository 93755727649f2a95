package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-news-scraper/pkg/export"
)

var scrapeFlags struct {
	urls     string
	feedURL  string
	location string
	format   string
	output   string
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "複数の記事URLを並列に処理し、結果を書き出します",
	Long: `--urls フラグのカンマ区切りリスト、--feed で指定したRSS/Atomフィード、または標準入力 (1行1URL) から
候補URLを受け取り、最大同時実行数で並列にスクレイピングします。
結果は --output のファイル、または標準出力 (csv/json のみ) に書き出されます。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GetPipeline()
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(scrapeFlags.format)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX && scrapeFlags.output == "" {
			return fmt.Errorf("xlsx 形式では --output の指定が必要です")
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		// 1. 処理対象URLのリストを決定
		var urls []string
		switch {
		case scrapeFlags.urls != "":
			urls, err = splitURLs(scrapeFlags.urls)
		case scrapeFlags.feedURL != "":
			var target string
			if target, err = ensureScheme(scrapeFlags.feedURL); err == nil {
				urls, err = p.FeedParser().CandidateURLs(ctx, target)
			}
		default:
			fmt.Fprintln(cmd.ErrOrStderr(), "URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
			urls, err = readURLs(os.Stdin)
		}
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("処理対象のURLが一つも指定されていません")
		}

		// 2. 並列スクレイピング
		records := p.ScrapeAll(ctx, urls, scrapeFlags.location)
		printSummary(cmd.ErrOrStderr(), records)

		// 3. 結果の出力
		if scrapeFlags.output == "" {
			return export.Write(cmd.OutOrStdout(), format, records)
		}
		if err := export.SaveFile(scrapeFlags.output, format, records); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "保存しました: %s\n", scrapeFlags.output)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeFlags.urls, "urls", "u", "", "抽出対象のカンマ区切りURLリスト (例: url1,url2,url3)")
	scrapeCmd.Flags().StringVar(&scrapeFlags.feedURL, "feed", "", "候補URLを取得する RSS/Atom フィードのURL")
	scrapeCmd.Flags().StringVarP(&scrapeFlags.location, "location", "l", "", "本文に含まれるか判定する地名")
	scrapeCmd.Flags().StringVarP(&scrapeFlags.format, "format", "f", string(export.FormatCSV), "出力形式 (csv, json, xlsx)")
	scrapeCmd.Flags().StringVarP(&scrapeFlags.output, "output", "o", "", "出力ファイルのパス (未指定時は標準出力)")
	scrapeCmd.MarkFlagsMutuallyExclusive("urls", "feed")
}
