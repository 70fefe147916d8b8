// Package publish drives an authenticated browser session through the
// creator platform's note-publishing flow as one ordered stage machine.
package publish

import (
	"context"
	"time"

	"redpost/pkg/browser"
)

// Driver is the page surface the publish stages operate on. *browser.Session
// satisfies it; tests substitute a scripted fake so stage logic runs without
// a real browser.
type Driver interface {
	Navigate(url string, opts browser.NavigateOptions) error
	URL() string
	QueryVisible(selector string) (bool, error)
	QueryAttached(selector string) (bool, error)
	Click(selector string) error
	Fill(selector, value string) error
	SetFiles(selector string, paths []string) error
	TypeSequentially(selector, text string, delay time.Duration) error
	Press(selector, key string) error
	InnerText(selector string) (string, error)
	InputValue(selector string) (string, error)
	AttributeValues(selector, attr string) ([]string, error)
	Screenshot(path string) error
}

var _ Driver = (*browser.Session)(nil)

// settle sleeps for d unless ctx is cancelled first. UI transitions on the
// platform need short grace periods that no DOM signal announces.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
