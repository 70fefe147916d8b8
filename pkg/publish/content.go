package publish

import (
	"context"
	"strings"
	"time"

	"redpost/pkg/config"
	"redpost/pkg/logging"
)

// verifyRatio is the minimum fraction of the expected text that must be
// read back from a field for the write to count as verified. Rich-text
// fields mangle some characters, so an exact match is too strict.
const verifyRatio = 0.8

// Filler writes title and body text into the compose form and verifies the
// platform actually kept what was written.
type Filler struct {
	driver   Driver
	resolver *Resolver
	limits   config.LimitsConfig
	logger   *logging.Logger
}

// NewFiller creates a content filler bound to platform limits.
func NewFiller(driver Driver, resolver *Resolver, limits config.LimitsConfig, logger *logging.Logger) *Filler {
	return &Filler{
		driver:   driver,
		resolver: resolver,
		limits:   limits,
		logger:   logger,
	}
}

// FillTitle writes the normalized title and reads it back for verification.
func (f *Filler) FillTitle(ctx context.Context, title string) error {
	cleaned := NormalizeText(title)
	if cleaned == "" {
		return NewError(KindContentValidation, "title must not be empty")
	}
	if len([]rune(cleaned)) > f.limits.MaxTitleLength {
		return NewError(KindContentValidation, "title exceeds %d characters", f.limits.MaxTitleLength)
	}

	selector, err := f.resolver.Resolve(TargetTitleField)
	if err != nil {
		return err
	}

	f.logger.Infof("Filling title via %s", selector)
	if err := f.driver.Fill(selector, cleaned); err != nil {
		return WrapError(KindSession, err, "title write failed")
	}

	if err := settle(ctx, 500*time.Millisecond); err != nil {
		return err
	}

	written, err := f.driver.InputValue(selector)
	if err != nil || written == "" {
		// Some title widgets are contenteditable rather than real inputs.
		written, err = f.driver.InnerText(selector)
		if err != nil {
			return WrapError(KindSession, err, "title read-back failed")
		}
	}

	if !verified(cleaned, written) {
		return NewError(KindContentValidation,
			"title verification failed: wrote %d characters, field holds %d",
			len([]rune(cleaned)), len([]rune(written)))
	}
	return nil
}

// FillBody clears the editor and writes the normalized body line by line
// with explicit newline keystrokes. The rich-text editor does not reliably
// preserve line breaks from a single bulk write.
func (f *Filler) FillBody(ctx context.Context, body string) error {
	cleaned := NormalizeText(body)
	if cleaned == "" {
		return NewError(KindContentValidation, "body must not be empty")
	}
	if len([]rune(cleaned)) > f.limits.MaxContentLength {
		return NewError(KindContentValidation, "body exceeds %d characters", f.limits.MaxContentLength)
	}

	selector, err := f.resolver.Resolve(TargetBodyEditor)
	if err != nil {
		return err
	}

	f.logger.Infof("Filling body via %s (%d characters)", selector, len([]rune(cleaned)))

	if err := f.driver.Click(selector); err != nil {
		return WrapError(KindSession, err, "editor focus failed")
	}
	if err := f.driver.Press(selector, "Control+a"); err != nil {
		return WrapError(KindSession, err, "editor clear failed")
	}
	if err := f.driver.Press(selector, "Delete"); err != nil {
		return WrapError(KindSession, err, "editor clear failed")
	}

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if line != "" {
			if err := f.driver.TypeSequentially(selector, line, 0); err != nil {
				return WrapError(KindSession, err, "body write failed at line %d", i+1)
			}
		}
		if i < len(lines)-1 {
			if err := f.driver.Press(selector, "Enter"); err != nil {
				return WrapError(KindSession, err, "newline keystroke failed at line %d", i+1)
			}
		}
	}

	if err := settle(ctx, time.Second); err != nil {
		return err
	}

	written, err := f.driver.InnerText(selector)
	if err != nil {
		return WrapError(KindSession, err, "body read-back failed")
	}

	if !verified(cleaned, written) {
		return NewError(KindContentValidation,
			"body verification failed: wrote %d characters, editor holds %d",
			len([]rune(cleaned)), len([]rune(written)))
	}
	return nil
}

// verified accepts an exact match, a prefix match in either direction, or
// a read-back at least verifyRatio of the expected length.
func verified(expected, actual string) bool {
	if actual == "" {
		return false
	}
	if expected == actual ||
		strings.HasPrefix(actual, expected) ||
		strings.Contains(actual, prefixOf(expected, 20)) {
		return true
	}
	return float64(len([]rune(actual))) >= float64(len([]rune(expected)))*verifyRatio
}

func prefixOf(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
