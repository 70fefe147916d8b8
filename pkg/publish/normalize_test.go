package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTextDropsSupplementaryPlane(t *testing.T) {
	// Emoji outside the BMP become spaces, which then collapse.
	assert.Equal(t, "hello world", NormalizeText("hello 😀 world"))
	assert.Equal(t, "旅行分享", NormalizeText("旅行分享"))
}

func TestNormalizeTextCollapsesSpacesKeepsNewlines(t *testing.T) {
	assert.Equal(t, "line one\nline two", NormalizeText("line   one\nline\t two"))
	assert.Equal(t, "", NormalizeText(""))
	assert.Equal(t, "", NormalizeText("   \t "))
}

func TestNormalizeTextTrims(t *testing.T) {
	assert.Equal(t, "middle", NormalizeText("  middle  "))
}

func TestExtractTopics(t *testing.T) {
	body, topics := ExtractTopics("今天去了海边 #旅行 #摄影！ 很开心 #旅行")

	assert.Equal(t, []string{"旅行", "摄影"}, topics, "deduplicated, punctuation stripped")
	assert.NotContains(t, body, "#")
	assert.Contains(t, body, "今天去了海边")
}

func TestExtractTopicsNone(t *testing.T) {
	body, topics := ExtractTopics("plain text without tags")

	assert.Empty(t, topics)
	assert.Equal(t, "plain text without tags", body)
}
