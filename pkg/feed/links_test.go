package feed

import (
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
)

// MockLinkSource は LinkSource を満たすテスト用のモックです。
type MockLinkSource struct {
	Links []string
}

func (m *MockLinkSource) GetLinks() []string {
	return m.Links
}

func TestFeedAdapter_GetLinks(t *testing.T) {
	tests := []struct {
		name     string
		feed     *gofeed.Feed
		expected []string
	}{
		{
			name: "正常ケース_複数のリンクを含む",
			feed: &gofeed.Feed{
				Items: []*gofeed.Item{
					{Link: "https://example.com/a"},
					{Link: " https://example.com/b "},
					{Link: ""},
					nil,
					{Link: "https://example.com/c"},
				},
			},
			expected: []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"},
		},
		{
			name: "GUIDがURLの場合は代替として使う",
			feed: &gofeed.Feed{
				Items: []*gofeed.Item{
					{GUID: "https://example.com/guid"},
					{GUID: "tag:example.com,2024:1"},
				},
			},
			expected: []string{"https://example.com/guid"},
		},
		{
			name:     "エッジケース_アイテムが空",
			feed:     &gofeed.Feed{Items: []*gofeed.Item{}},
			expected: []string{},
		},
		{
			name:     "エッジケース_フィードがnil",
			feed:     nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewFeedAdapter(tt.feed).GetLinks())
		})
	}
}

func TestGetAllLinks(t *testing.T) {
	assert.Equal(t, []string{}, GetAllLinks(nil))
	assert.Equal(t, []string{"https://example.com/x"}, GetAllLinks(&MockLinkSource{Links: []string{"https://example.com/x"}}))
}

func TestDedup(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedup([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{}, dedup(nil))
}
