package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedURL string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードを取得・解析し、記事の一覧を表示します",
	Long:  `指定されたURLからRSSまたはAtomフィードを取得し、フィードタイトルと記事タイトル・URLを表示します。表示されたURLは scrape --feed で一括処理できます。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GetPipeline()
		if err != nil {
			return err
		}
		target, err := ensureScheme(feedURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		parsedFeed, err := p.FeedParser().FetchAndParse(ctx, target)
		if err != nil {
			return fmt.Errorf("フィード解析パイプラインの実行エラー: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--- フィード解析結果 ---\n")
		fmt.Fprintf(out, "フィードタイトル: %s\n", parsedFeed.Title)
		if parsedFeed.Link != "" {
			fmt.Fprintf(out, "リンク: %s\n", parsedFeed.Link)
		}
		fmt.Fprintf(out, "合計記事数: %d\n", len(parsedFeed.Items))
		fmt.Fprintln(out, "-----------------------")

		for i, item := range parsedFeed.Items {
			fmt.Fprintf(out, "[%d] %s\n", i+1, item.Title)
			fmt.Fprintf(out, "    URL: %s\n", item.Link)
			if item.PublishedParsed != nil {
				fmt.Fprintf(out, "    公開日: %s\n", item.PublishedParsed.Local().Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	_ = feedCmd.MarkFlagRequired("url")
}
