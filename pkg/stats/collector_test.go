package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsPrimaryPaths(t *testing.T) {
	raw := `{"dashboard":{"overview":{
		"views":1200,"likes":340,"collects":56,
		"comments":12,"shares":4,"interactions":412}}}`

	m, err := parseMetrics(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), m.Views)
	assert.Equal(t, int64(340), m.Likes)
	assert.Equal(t, int64(56), m.Collects)
	assert.Equal(t, int64(12), m.Comments)
	assert.Equal(t, int64(4), m.Shares)
	assert.Equal(t, int64(412), m.Interactions)
}

func TestParseMetricsFallbackPaths(t *testing.T) {
	raw := `{"creator":{"dataCenter":{"views":88,"likes":9}}}`

	m, err := parseMetrics(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(88), m.Views)
	assert.Equal(t, int64(9), m.Likes)
	assert.Zero(t, m.Shares, "absent counters stay zero")
}

func TestParseMetricsPrimaryWinsOverFallback(t *testing.T) {
	raw := `{
		"dashboard":{"overview":{"views":100}},
		"creator":{"dataCenter":{"views":999}}}`

	m, err := parseMetrics(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.Views)
}

func TestParseMetricsEmptyState(t *testing.T) {
	m, err := parseMetrics(`{}`)
	require.NoError(t, err)
	assert.Equal(t, Metrics{}, *m)
}

func TestParseMetricsInvalidPayload(t *testing.T) {
	_, err := parseMetrics(`<html>not json</html>`)
	assert.Error(t, err)
}
