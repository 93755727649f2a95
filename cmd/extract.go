package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var extractFlags struct {
	url      string
	location string
}

var extractCmd = &cobra.Command{
	Use:   "extract [URL]",
	Short: "1つの記事URLから本文を抽出して表示します",
	Long:  `指定されたURL (引数、--url、または標準入力) の記事を取得し、ページ送りを辿って本文を連結して表示します。`,
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := GetPipeline()
		if err != nil {
			return err
		}

		// 1. 処理対象URLの決定 (引数 > フラグ > 標準入力)
		target := extractFlags.url
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "処理するURLを入力してください: ")
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("標準入力の読み取りエラー: %w", err)
				}
				return fmt.Errorf("URLが入力されていません")
			}
			target = scanner.Text()
		}

		// 2. スキームの補完とバリデーション
		processedURL, err := ensureScheme(target)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		// 3. 抽出の実行
		ctx, cancel := commandContext(cmd)
		defer cancel()
		rec := p.ExtractURL(ctx, processedURL, extractFlags.location)

		// 4. 結果の出力
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "タイトル: %s\n", rec.Title)
		fmt.Fprintf(out, "URL: %s\n", rec.URL)
		if strings.TrimSpace(extractFlags.location) != "" {
			fmt.Fprintf(out, "地名一致: %s\n", rec.LocationMatch)
		}
		fmt.Fprintln(out, "--- 抽出された本文 ---")
		fmt.Fprintln(out, rec.Content)
		fmt.Fprintln(out, "-----------------------")

		if rec.Failed() {
			return fmt.Errorf("コンテンツ抽出エラー (URL: %s): %w", rec.URL, rec.Err)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractFlags.url, "url", "u", "", "抽出対象の記事URL")
	extractCmd.Flags().StringVarP(&extractFlags.location, "location", "l", "", "本文に含まれるか判定する地名 (大文字小文字は区別しません)")
}
