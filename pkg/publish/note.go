package publish

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"redpost/pkg/config"
)

// MediaKind is the single media family a note carries.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

var imageGlobs = compileGlobs("*.jpg", "*.jpeg", "*.png", "*.webp", "*.gif")
var videoGlobs = compileGlobs("*.mp4", "*.mov", "*.avi", "*.mkv", "*.flv", "*.wmv", "*.m4v")

func compileGlobs(patterns ...string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		globs = append(globs, glob.MustCompile(p))
	}
	return globs
}

func matchesAny(globs []glob.Glob, path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Note is the content of one publish attempt. Immutable once a job is
// created from it.
type Note struct {
	Title    string   `json:"title" yaml:"title"`
	Body     string   `json:"body" yaml:"body"`
	Images   []string `json:"images,omitempty" yaml:"images,omitempty"`
	Video    string   `json:"video,omitempty" yaml:"video,omitempty"`
	Topics   []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
}

// NewNote builds a draft from raw inputs. Topics written inline in the
// body as #tags are pulled out into the topic list and stripped from the
// body text, after any explicitly supplied topics.
func NewNote(title, body string, images []string, video string, topics []string, location string) Note {
	cleanedBody, embedded := ExtractTopics(body)

	seen := make(map[string]bool, len(topics)+len(embedded))
	merged := make([]string, 0, len(topics)+len(embedded))
	for _, topic := range append(append([]string{}, topics...), embedded...) {
		topic = strings.TrimSpace(strings.TrimPrefix(topic, "#"))
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		merged = append(merged, topic)
	}

	return Note{
		Title:    title,
		Body:     cleanedBody,
		Images:   images,
		Video:    video,
		Topics:   merged,
		Location: strings.TrimSpace(location),
	}
}

// MediaKind reports which media family the note carries.
func (n *Note) MediaKind() MediaKind {
	if n.Video != "" {
		return MediaVideo
	}
	return MediaImage
}

// MediaPaths returns the media files in submission order.
func (n *Note) MediaPaths() []string {
	if n.Video != "" {
		return []string{n.Video}
	}
	return n.Images
}

// Validate checks the note against platform limits before any browser work
// is spent on it. All violations map to content-validation errors.
func (n *Note) Validate(limits config.LimitsConfig) error {
	if strings.TrimSpace(n.Title) == "" {
		return NewError(KindContentValidation, "title must not be empty")
	}
	if len([]rune(n.Title)) > limits.MaxTitleLength {
		return NewError(KindContentValidation, "title exceeds %d characters", limits.MaxTitleLength)
	}
	if strings.TrimSpace(n.Body) == "" {
		return NewError(KindContentValidation, "body must not be empty")
	}
	if len([]rune(n.Body)) > limits.MaxContentLength {
		return NewError(KindContentValidation, "body exceeds %d characters", limits.MaxContentLength)
	}

	if len(n.Images) > 0 && n.Video != "" {
		return NewError(KindContentValidation, "a note carries images or a video, not both")
	}
	if len(n.Images) == 0 && n.Video == "" {
		return NewError(KindContentValidation, "a note needs at least one media file")
	}
	if len(n.Images) > limits.MaxImages {
		return NewError(KindContentValidation, "at most %d images per note", limits.MaxImages)
	}
	if n.Video != "" && limits.MaxVideos < 1 {
		return NewError(KindContentValidation, "video notes are not permitted by the configured limits")
	}

	for _, p := range n.Images {
		if !matchesAny(imageGlobs, p) {
			return NewError(KindContentValidation, "unsupported image format: %s", p)
		}
		if _, err := os.Stat(p); err != nil {
			return WrapError(KindContentValidation, err, "image not readable: %s", p)
		}
	}
	if n.Video != "" {
		if !matchesAny(videoGlobs, n.Video) {
			return NewError(KindContentValidation, "unsupported video format: %s", n.Video)
		}
		if _, err := os.Stat(n.Video); err != nil {
			return WrapError(KindContentValidation, err, "video not readable: %s", n.Video)
		}
	}

	if len(n.Topics) > limits.MaxTopics {
		return NewError(KindContentValidation, "at most %d topics per note", limits.MaxTopics)
	}
	for _, topic := range n.Topics {
		if len([]rune(topic)) > limits.MaxTopicLength {
			return NewError(KindContentValidation, "topic %q exceeds %d characters", topic, limits.MaxTopicLength)
		}
	}

	return nil
}
