package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.CurrentURL = s.Page.URL()
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// QueryVisible reports whether at least one element matching the selector
// is attached and visible. It never waits; absence is not an error.
func (s *Session) QueryVisible(selector string) (bool, error) {
	s.UpdateLastUsed()

	locator := s.Page.Locator(selector).First()
	count, err := locator.Count()
	if err != nil {
		return false, fmt.Errorf("selector query failed: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	visible, err := locator.IsVisible()
	if err != nil {
		return false, fmt.Errorf("visibility check failed: %w", err)
	}
	return visible, nil
}

// QueryAttached reports whether at least one element matching the selector
// is attached to the DOM, visible or not. File inputs are routinely hidden
// behind styled dropzones, so attachment is the right check for them.
func (s *Session) QueryAttached(selector string) (bool, error) {
	s.UpdateLastUsed()

	count, err := s.Page.Locator(selector).Count()
	if err != nil {
		return false, fmt.Errorf("selector query failed: %w", err)
	}
	return count > 0, nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	s.UpdateLastUsed()

	if err := s.Page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	// Clicks can trigger navigation
	s.CurrentURL = s.Page.URL()
	return nil
}

// Fill replaces the value of the first input matching the selector.
func (s *Session) Fill(selector, value string) error {
	s.UpdateLastUsed()

	if err := s.Page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// SetFiles submits local file paths to a file-input element in one batch.
func (s *Session) SetFiles(selector string, paths []string) error {
	s.UpdateLastUsed()

	if err := s.Page.Locator(selector).First().SetInputFiles(paths); err != nil {
		return fmt.Errorf("set input files failed: %w", err)
	}
	return nil
}

// TypeSequentially types text into the first element matching the selector
// one character at a time with the given inter-keystroke delay. Some rich
// inputs only run their recognition logic on real key events, so a bulk
// fill is not equivalent.
func (s *Session) TypeSequentially(selector, text string, delay time.Duration) error {
	s.UpdateLastUsed()

	opts := playwright.LocatorPressSequentiallyOptions{}
	if delay > 0 {
		opts.Delay = playwright.Float(float64(delay.Milliseconds()))
	}

	if err := s.Page.Locator(selector).First().PressSequentially(text, opts); err != nil {
		return fmt.Errorf("sequential type failed: %w", err)
	}
	return nil
}

// Press sends a single key chord to the first element matching the selector.
func (s *Session) Press(selector, key string) error {
	s.UpdateLastUsed()

	if err := s.Page.Locator(selector).First().Press(key); err != nil {
		return fmt.Errorf("key press failed: %w", err)
	}
	return nil
}

// InnerText returns the rendered text of the first element matching the
// selector.
func (s *Session) InnerText(selector string) (string, error) {
	s.UpdateLastUsed()

	text, err := s.Page.Locator(selector).First().InnerText()
	if err != nil {
		return "", fmt.Errorf("inner text read failed: %w", err)
	}
	return text, nil
}

// InputValue returns the value of the first input matching the selector.
func (s *Session) InputValue(selector string) (string, error) {
	s.UpdateLastUsed()

	value, err := s.Page.Locator(selector).First().InputValue()
	if err != nil {
		return "", fmt.Errorf("input value read failed: %w", err)
	}
	return value, nil
}

// AttributeValues returns the named attribute of every element matching the
// selector, skipping elements without it.
func (s *Session) AttributeValues(selector, attr string) ([]string, error) {
	s.UpdateLastUsed()

	elements, err := s.Page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	values := make([]string, 0, len(elements))
	for _, el := range elements {
		value, err := el.GetAttribute(attr)
		if err != nil || value == "" {
			continue
		}
		values = append(values, value)
	}
	return values, nil
}

// Evaluate runs a JavaScript expression in the page and returns its result
// as a string.
func (s *Session) Evaluate(expression string) (string, error) {
	s.UpdateLastUsed()

	value, err := s.Page.Evaluate(expression)
	if err != nil {
		return "", fmt.Errorf("evaluate failed: %w", err)
	}
	if value == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", value), nil
}

// Cookies returns the context's cookies, optionally filtered by URL.
func (s *Session) Cookies(urls ...string) ([]playwright.Cookie, error) {
	s.UpdateLastUsed()

	cookies, err := s.Context.Cookies(urls...)
	if err != nil {
		return nil, fmt.Errorf("cookie read failed: %w", err)
	}
	return cookies, nil
}

// Screenshot captures a full-page screenshot into path. Used to preserve
// the failure scene when a publish stage errors out.
func (s *Session) Screenshot(path string) error {
	s.UpdateLastUsed()

	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}
