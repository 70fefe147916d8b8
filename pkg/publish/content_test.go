package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiller(d *fakeDriver) *Filler {
	logger := testLogger()
	return NewFiller(d, NewResolver(d, logger), testLimits(), logger)
}

func TestFillTitleWritesAndVerifies(t *testing.T) {
	d := newFakeDriver()
	d.show(".d-text")
	f := testFiller(d)

	require.NoError(t, f.FillTitle(context.Background(), "周末去爬山"))
	assert.Equal(t, "周末去爬山", d.values[".d-text"])
}

func TestFillTitleNormalizesBeforeWriting(t *testing.T) {
	d := newFakeDriver()
	d.show(".d-text")
	f := testFiller(d)

	require.NoError(t, f.FillTitle(context.Background(), "  周末\t去爬山  "))
	assert.Equal(t, "周末 去爬山", d.values[".d-text"])
}

func TestFillTitleTooLong(t *testing.T) {
	d := newFakeDriver()
	d.show(".d-text")
	f := testFiller(d)

	err := f.FillTitle(context.Background(), strings.Repeat("长", 51))
	require.Error(t, err)
	assert.Equal(t, KindContentValidation, KindOf(err))
	assert.Empty(t, d.values, "nothing may be written after a limit violation")
}

func TestFillTitleContenteditableFallback(t *testing.T) {
	d := newFakeDriver()
	d.show("[placeholder*='标题']")
	f := testFiller(d)

	// InputValue reflects Fill writes even for the second candidate, so
	// break that path and serve the text through InnerText instead.
	d.fail["inputvalue"] = errors.New("not an input")
	d.texts["[placeholder*='标题']"] = "周末去爬山"

	require.NoError(t, f.FillTitle(context.Background(), "周末去爬山"))
}

func TestFillTitleVerificationFailure(t *testing.T) {
	d := newFakeDriver()
	d.show(".d-text")
	f := testFiller(d)

	// The field silently drops the write.
	d.fail["inputvalue"] = errors.New("gone")
	d.fail["innertext"] = errors.New("gone")

	err := f.FillTitle(context.Background(), "周末去爬山")
	require.Error(t, err)
	assert.Equal(t, KindSession, KindOf(err))
}

func TestFillBodyLineByLine(t *testing.T) {
	d := newFakeDriver()
	d.show(".ql-editor")
	f := testFiller(d)

	body := "第一行\n第二行\n第三行"
	require.NoError(t, f.FillBody(context.Background(), body))

	assert.Contains(t, d.clicked, ".ql-editor", "editor must be focused first")
	presses := d.pressed[".ql-editor"]
	assert.Equal(t, "Control+a", presses[0])
	assert.Equal(t, "Delete", presses[1])

	enters := 0
	for _, key := range presses {
		if key == "Enter" {
			enters++
		}
	}
	assert.Equal(t, 2, enters, "one Enter between each pair of lines")
	assert.Equal(t, body, d.typed[".ql-editor"])
}

func TestFillBodyEmptyLinesKeepNewlines(t *testing.T) {
	d := newFakeDriver()
	d.show(".ql-editor")
	f := testFiller(d)

	require.NoError(t, f.FillBody(context.Background(), "开头\n\n结尾"))
	assert.Equal(t, "开头\n\n结尾", d.typed[".ql-editor"])
}

func TestFillBodyEditorMissing(t *testing.T) {
	d := newFakeDriver()
	f := testFiller(d)

	err := f.FillBody(context.Background(), "正文")
	require.Error(t, err)
	assert.Equal(t, KindLocator, KindOf(err))
}

func TestFillBodyVerificationFailure(t *testing.T) {
	d := newFakeDriver()
	d.show(".ql-editor")
	f := testFiller(d)

	// Editor reports far less text than was written.
	d.texts[".ql-editor"] = "第"

	err := f.FillBody(context.Background(), strings.Repeat("很长的正文内容", 10))
	require.Error(t, err)
	assert.Equal(t, KindContentValidation, KindOf(err))
}

func TestFillBodyCancellation(t *testing.T) {
	d := newFakeDriver()
	d.show(".ql-editor")
	f := testFiller(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.FillBody(ctx, "正文")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVerified(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     bool
	}{
		{"exact", "你好", "你好", true},
		{"actual has suffix", "你好", "你好世界", true},
		{"short prefix contained", strings.Repeat("内容", 20), strings.Repeat("内容", 10) + "尾巴", true},
		{"length ratio passes", strings.Repeat("a", 100), strings.Repeat("b", 85), true},
		{"length ratio fails", strings.Repeat("a", 100), strings.Repeat("b", 50), false},
		{"empty actual", "你好", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verified(tt.expected, tt.actual))
		})
	}
}
