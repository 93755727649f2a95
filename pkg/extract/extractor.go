package extract

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	// MinParagraphLength 以下の文字数の段落 (キャプション、署名、広告ラベルなど) は捨てられます。
	MinParagraphLength = 30

	paragraphSelector = "p"
	paragraphSep      = "\n"
)

// DefaultContainerSelectors は、記事本文を囲むコンテナのセレクターを優先順に並べたものです。
// 各サイトのテンプレートに合わせて経験的に決められた順序のため、並び替えてはいけません。
var DefaultContainerSelectors = []string{
	"div.txt-article",
	"div.td-post-content",
	"div.article-content",
	"div.content",
	"div.isi-berita",
	"div.article-body",
	"div.entry-content",
	"div.read__content",
	"div.post-content",
	"div.detail__body-text",
	"div.article__content",
	"div.article-content-body__item-content",
	"div.detail-desc",
	"div.itp_bodycontent",
}

// Text は、1ページ分の抽出結果です。
type Text struct {
	Content  string // 段落を改行で連結したもの。空の場合もある
	Selector string // 一致したコンテナのセレクター。一致しなかった場合は空
}

// Matched は、いずれかのコンテナセレクターが一致したかを返します。
func (t Text) Matched() bool {
	return t.Selector != ""
}

// Extractor は、ドキュメントから記事本文を抽出します。状態を持たず、並行に使用できます。
type Extractor struct {
	selectors []string
	minLength int
}

// Option は Extractor の設定を行うための関数型です。
type Option func(*Extractor)

// WithSelectors は、コンテナセレクターの優先順リストを差し替えます。
func WithSelectors(selectors []string) Option {
	return func(e *Extractor) {
		e.selectors = slices.Clone(selectors)
	}
}

// WithMinParagraphLength は、段落を捨てる文字数のしきい値を変更します。
func WithMinParagraphLength(n int) Option {
	return func(e *Extractor) {
		e.minLength = n
	}
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		selectors: slices.Clone(DefaultContainerSelectors),
		minLength: MinParagraphLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract は、最初に一致したコンテナから段落テキストを抽出します。
// 複数のコンテナが一致しても結合はしません。
// どのコンテナも一致しない場合は空の Text を返します (エラーではありません)。
func (e *Extractor) Extract(doc *goquery.Document) Text {
	if doc == nil {
		return Text{}
	}

	// 1. 優先順にコンテナを探す
	container, selector := e.findContainer(doc)
	if container == nil {
		return Text{}
	}

	// 2. 段落をドキュメント順に収集
	return Text{
		Content:  strings.Join(e.collectParagraphs(container), paragraphSep),
		Selector: selector,
	}
}

// findContainer は、リストの中で最初にドキュメントに一致したセレクターの最初の要素を返します。
func (e *Extractor) findContainer(doc *goquery.Document) (*goquery.Selection, string) {
	for _, selector := range e.selectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel, selector
		}
	}
	return nil, ""
}

// collectParagraphs は、しきい値より長い段落だけを返します。
func (e *Extractor) collectParagraphs(container *goquery.Selection) []string {
	var paragraphs []string
	container.Find(paragraphSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > e.minLength {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}
