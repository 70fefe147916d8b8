package publish

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"redpost/pkg/logging"
)

// topicAttempts is how many times one topic is retyped before being
// recorded as unverified.
const topicAttempts = 2

// typeDelay is the inter-keystroke delay while typing a topic. The
// platform's tag recognition only fires on realistic key events; bulk
// writes never trigger the suggestion dropdown.
const typeDelay = 50 * time.Millisecond

// tagMarker is the literal suffix the platform appends to converted topic
// tags in the editor's rendered text.
const tagMarker = "[话题]#"

// TopicVerificationRecord captures the outcome of tagging one topic.
type TopicVerificationRecord struct {
	Topic    string `json:"topic"`
	Attempts int    `json:"attempts"`
	Verified bool   `json:"verified"`
}

// Annotator inserts topic tags into the note body and verifies that the
// platform converted each one into a structured mention node. Annotation is
// best-effort: failed topics are recorded, never escalated.
type Annotator struct {
	driver   Driver
	resolver *Resolver
	logger   *logging.Logger
}

// NewAnnotator creates a topic annotator.
func NewAnnotator(driver Driver, resolver *Resolver, logger *logging.Logger) *Annotator {
	return &Annotator{
		driver:   driver,
		resolver: resolver,
		logger:   logger,
	}
}

// Annotate tags every topic in order, each with up to topicAttempts tries.
// The returned records always cover every topic; the error is non-nil only
// when the context is cancelled mid-run.
func (a *Annotator) Annotate(ctx context.Context, topics []string) ([]TopicVerificationRecord, error) {
	records := make([]TopicVerificationRecord, len(topics))
	for i, topic := range topics {
		records[i] = TopicVerificationRecord{Topic: topic}
	}
	if len(topics) == 0 {
		return records, nil
	}

	editor, err := a.resolver.Resolve(TargetBodyEditor)
	if err != nil {
		a.logger.Warnf("Cannot annotate topics, editor not found: %v", err)
		return records, nil
	}

	if err := a.moveToEnd(ctx, editor); err != nil {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		a.logger.Warnf("Could not position cursor for topics: %v", err)
		return records, nil
	}

	for i := range records {
		rec := &records[i]
		for rec.Attempts < topicAttempts && !rec.Verified {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			rec.Attempts++

			if err := a.typeTopic(ctx, editor, rec.Topic); err != nil {
				if ctx.Err() != nil {
					return records, ctx.Err()
				}
				a.logger.Warnf("Typing topic %q failed (attempt %d): %v", rec.Topic, rec.Attempts, err)
				continue
			}

			rec.Verified = a.verify(rec.Topic)
			if !rec.Verified {
				a.logger.Warnf("Topic %q not converted (attempt %d/%d)", rec.Topic, rec.Attempts, topicAttempts)
			}
		}

		if rec.Verified {
			a.logger.Infof("Topic %q tagged", rec.Topic)
		}

		// Space keeps adjacent tags from merging.
		if i < len(records)-1 {
			if err := a.driver.TypeSequentially(editor, " ", 0); err != nil {
				a.logger.Warnf("Separator keystroke failed: %v", err)
			}
		}
	}

	return records, nil
}

// moveToEnd focuses the editor and walks the caret to the true end of the
// document, then opens a fresh paragraph for the tags.
func (a *Annotator) moveToEnd(ctx context.Context, editor string) error {
	if err := a.driver.Click(editor); err != nil {
		return err
	}
	if err := a.driver.Press(editor, "Control+End"); err != nil {
		return err
	}
	if err := a.driver.Press(editor, "End"); err != nil {
		return err
	}
	for range [2]int{} {
		if err := a.driver.Press(editor, "Enter"); err != nil {
			return err
		}
	}
	return settle(ctx, 200*time.Millisecond)
}

// typeTopic types `#name` one character at a time and confirms with Enter.
func (a *Annotator) typeTopic(ctx context.Context, editor, topic string) error {
	text := topic
	if !strings.HasPrefix(text, "#") {
		text = "#" + text
	}

	if err := a.driver.TypeSequentially(editor, text, typeDelay); err != nil {
		return err
	}
	if err := settle(ctx, 300*time.Millisecond); err != nil {
		return err
	}
	if err := a.driver.Press(editor, "Enter"); err != nil {
		return err
	}
	return settle(ctx, 500*time.Millisecond)
}

// verify looks for a structured mention node whose payload names the topic,
// falling back to the raw tag-marker text in the editor as a weaker signal.
func (a *Annotator) verify(topic string) bool {
	for _, sel := range locatorTable[TargetMentionNode].Selectors {
		payloads, err := a.driver.AttributeValues(sel, "data-topic")
		if err != nil {
			continue
		}
		for _, payload := range payloads {
			if gjson.Get(payload, "name").String() == topic ||
				strings.Contains(payload, topic) {
				return true
			}
		}
	}

	editor, err := a.resolver.Resolve(TargetBodyEditor)
	if err != nil {
		return false
	}
	text, err := a.driver.InnerText(editor)
	if err != nil {
		return false
	}
	return strings.Contains(text, topic+tagMarker)
}
