package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shouni/go-news-scraper/pkg/types"
)

// Format は、記録の書き出し形式です。
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"

	// SheetName は xlsx 出力のシート名です。
	SheetName = "Articles"
	// TimestampLayout はファイル名に付くタイムスタンプの書式です。
	TimestampLayout = "20060102_150405"

	// Excel の1セルに格納できる最大文字数
	maxCellChars = 32767
)

// ParseFormat は文字列から Format を返します。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("未対応の出力形式です: %q (xlsx, csv, json のいずれか)", s)
	}
}

// jsonRecord は JSON 出力の1要素です。キーはヘッダーと同じ項目を表します。
type jsonRecord struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	LocationMatch string `json:"location_match"`
}

// Write は records を format で w に書き出します。
func Write(w io.Writer, format Format, records []types.ArticleRecord) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("未対応の出力形式です: %q", format)
	}
}

// WriteCSV は、ヘッダー行に続けて1記録1行で書き出します。
func WriteCSV(w io.Writer, records []types.ArticleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.RowHeader); err != nil {
		return fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("CSV行の書き込みに失敗しました (URL: %s): %w", r.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON は、記録をインデント付きの JSON 配列として書き出します。
func WriteJSON(w io.Writer, records []types.ArticleRecord) error {
	out := make([]jsonRecord, 0, len(records))
	for _, r := range records {
		out = append(out, jsonRecord{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			LocationMatch: r.LocationMatch.String(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("JSONの書き込みに失敗しました: %w", err)
	}
	return nil
}

// WriteXLSX は、SheetName のシートにヘッダーと記録を書き出します。
// セルの上限を超える本文は切り詰められます。
func WriteXLSX(w io.Writer, records []types.ArticleRecord) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("シート名の設定に失敗しました: %w", err)
	}

	if err := setRow(f, 1, types.RowHeader); err != nil {
		return err
	}
	for i, r := range records {
		row := r.Row()
		row[2] = truncateRunes(row[2], maxCellChars)
		if err := setRow(f, i+2, row); err != nil {
			return fmt.Errorf("行の書き込みに失敗しました (URL: %s): %w", r.URL, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsxの書き込みに失敗しました: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(SheetName, cell, &row)
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// OutputPath は `<dir>/<site のドットを_に置換>/<keyword>_<YYYYmmdd_HHMMSS>.<format>` を返します。
func OutputPath(dir, site, keyword string, format Format, now time.Time) string {
	folder := sanitize(strings.ReplaceAll(strings.TrimSpace(site), ".", "_"))
	name := fmt.Sprintf("%s_%s.%s", sanitize(strings.TrimSpace(keyword)), now.Format(TimestampLayout), format)
	return filepath.Join(dir, folder, name)
}

// sanitize はパス区切りなど、ファイル名に使えない文字を _ に置き換えます。
func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// SaveFile は records を path に書き出します。親ディレクトリは必要に応じて作成されます。
func SaveFile(path string, format Format, records []types.ArticleRecord) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("出力ファイルの作成に失敗しました: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("出力ファイルのクローズに失敗しました: %w", cerr)
		}
	}()

	return Write(file, format, records)
}
