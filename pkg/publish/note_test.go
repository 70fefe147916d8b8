package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpost/pkg/config"
)

func testLimits() config.LimitsConfig {
	return config.Default().Limits
}

func mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestNewNoteExtractsBodyTopics(t *testing.T) {
	note := NewNote("标题", "今天去了西湖 #旅行 #杭州 很开心", nil, "v.mp4", []string{"周末"}, "")

	assert.Equal(t, "今天去了西湖 很开心", note.Body)
	assert.Equal(t, []string{"周末", "旅行", "杭州"}, note.Topics,
		"explicit topics first, embedded tags after, in order")
}

func TestNewNoteDeduplicatesTopics(t *testing.T) {
	note := NewNote("标题", "正文 #旅行", nil, "", []string{"旅行", "#旅行", " 旅行 "}, "")

	assert.Equal(t, []string{"旅行"}, note.Topics)
}

func TestNewNotePlainBodyUntouched(t *testing.T) {
	note := NewNote("标题", "没有话题的正文", nil, "", nil, "")

	assert.Equal(t, "没有话题的正文", note.Body)
	assert.Empty(t, note.Topics)
}

func TestNewNoteCarriesLocation(t *testing.T) {
	note := NewNote("标题", "正文", nil, "v.mp4", nil, "  杭州西湖  ")

	assert.Equal(t, "杭州西湖", note.Location)
}

func TestNoteValidateImageNote(t *testing.T) {
	note := Note{
		Title:  "海边一日",
		Body:   "今天的海很蓝",
		Images: []string{mediaFile(t, "beach.JPG")},
		Topics: []string{"旅行"},
	}

	require.NoError(t, note.Validate(testLimits()))
	assert.Equal(t, MediaImage, note.MediaKind())
	assert.Len(t, note.MediaPaths(), 1)
}

func TestNoteValidateVideoNote(t *testing.T) {
	note := Note{
		Title: "vlog",
		Body:  "剪了一天",
		Video: mediaFile(t, "day.mp4"),
	}

	require.NoError(t, note.Validate(testLimits()))
	assert.Equal(t, MediaVideo, note.MediaKind())
}

func TestNoteValidateVideoDisabledByLimits(t *testing.T) {
	note := Note{
		Title: "vlog",
		Body:  "剪了一天",
		Video: mediaFile(t, "day.mp4"),
	}
	limits := testLimits()
	limits.MaxVideos = 0

	err := note.Validate(limits)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: KindContentValidation}))
}

func TestNoteValidateRejections(t *testing.T) {
	img := func(t *testing.T) string { return mediaFile(t, "a.png") }

	tests := []struct {
		name string
		note Note
	}{
		{"empty title", Note{Body: "b", Images: []string{img(t)}}},
		{"title too long", Note{Title: strings.Repeat("长", 51), Body: "b", Images: []string{img(t)}}},
		{"empty body", Note{Title: "t", Images: []string{img(t)}}},
		{"body too long", Note{Title: "t", Body: strings.Repeat("字", 1001), Images: []string{img(t)}}},
		{"no media", Note{Title: "t", Body: "b"}},
		{"images and video", Note{Title: "t", Body: "b", Images: []string{img(t)}, Video: "v.mp4"}},
		{"unsupported image format", Note{Title: "t", Body: "b", Images: []string{"doc.pdf"}}},
		{"unsupported video format", Note{Title: "t", Body: "b", Video: "clip.txt"}},
		{"missing image file", Note{Title: "t", Body: "b", Images: []string{"/nonexistent/x.jpg"}}},
		{"topic too long", Note{Title: "t", Body: "b", Images: []string{img(t)},
			Topics: []string{strings.Repeat("长", 21)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.note.Validate(testLimits())
			require.Error(t, err)
			assert.True(t, errors.Is(err, &Error{Kind: KindContentValidation}), "got %v", err)
		})
	}
}

func TestNoteValidateTooManyImages(t *testing.T) {
	note := Note{Title: "t", Body: "b"}
	for i := 0; i < 10; i++ {
		note.Images = append(note.Images, mediaFile(t, "img.jpg"))
	}

	err := note.Validate(testLimits())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 9 images")
}

func TestNoteValidateTooManyTopics(t *testing.T) {
	note := Note{Title: "t", Body: "b", Images: []string{mediaFile(t, "a.jpg")}}
	for i := 0; i < 11; i++ {
		note.Topics = append(note.Topics, "话题")
	}

	err := note.Validate(testLimits())
	assert.True(t, errors.Is(err, &Error{Kind: KindContentValidation}))
}
