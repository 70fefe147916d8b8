package publish

import (
	"fmt"
	"sync"
	"time"

	"redpost/pkg/browser"
	"redpost/pkg/logging"
)

// fakeDriver scripts a page for stage tests. Selector state can be mutated
// mid-test; hooks fire on clicks and file submission so tests can simulate
// delayed platform reactions.
type fakeDriver struct {
	mu       sync.Mutex
	url      string
	visible  map[string]bool
	attached map[string]bool
	values   map[string]string
	texts    map[string]string
	attrs    map[string][]string
	typed    map[string]string
	pressed  map[string][]string
	clicked  []string
	shots    []string
	files    map[string][]string
	fail     map[string]error

	onClick    func(selector string)
	onSetFiles func(selector string, paths []string)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		url:      PublishURL,
		visible:  map[string]bool{},
		attached: map[string]bool{},
		values:   map[string]string{},
		texts:    map[string]string{},
		attrs:    map[string][]string{},
		typed:    map[string]string{},
		pressed:  map[string][]string{},
		files:    map[string][]string{},
		fail:     map[string]error{},
	}
}

func (d *fakeDriver) failing(op string) error {
	return d.fail[op]
}

func (d *fakeDriver) Navigate(url string, opts browser.NavigateOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("navigate"); err != nil {
		return err
	}
	d.url = url
	return nil
}

func (d *fakeDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *fakeDriver) setURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

func (d *fakeDriver) QueryVisible(selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("query"); err != nil {
		return false, err
	}
	return d.visible[selector], nil
}

func (d *fakeDriver) QueryAttached(selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("query"); err != nil {
		return false, err
	}
	return d.attached[selector] || d.visible[selector], nil
}

func (d *fakeDriver) Click(selector string) error {
	d.mu.Lock()
	hook := d.onClick
	if err := d.failing("click"); err != nil {
		d.mu.Unlock()
		return err
	}
	d.clicked = append(d.clicked, selector)
	d.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (d *fakeDriver) Fill(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("fill"); err != nil {
		return err
	}
	d.values[selector] = value
	return nil
}

func (d *fakeDriver) SetFiles(selector string, paths []string) error {
	d.mu.Lock()
	hook := d.onSetFiles
	if err := d.failing("setfiles"); err != nil {
		d.mu.Unlock()
		return err
	}
	d.files[selector] = paths
	d.mu.Unlock()
	if hook != nil {
		hook(selector, paths)
	}
	return nil
}

func (d *fakeDriver) TypeSequentially(selector, text string, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("type"); err != nil {
		return err
	}
	d.typed[selector] += text
	return nil
}

func (d *fakeDriver) Press(selector, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("press"); err != nil {
		return err
	}
	d.pressed[selector] = append(d.pressed[selector], key)
	if key == "Enter" {
		d.typed[selector] += "\n"
	}
	return nil
}

func (d *fakeDriver) InnerText(selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("innertext"); err != nil {
		return "", err
	}
	if text, ok := d.texts[selector]; ok {
		return text, nil
	}
	return d.typed[selector], nil
}

func (d *fakeDriver) InputValue(selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("inputvalue"); err != nil {
		return "", err
	}
	return d.values[selector], nil
}

func (d *fakeDriver) AttributeValues(selector, attr string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("attrs"); err != nil {
		return nil, err
	}
	return d.attrs[fmt.Sprintf("%s/%s", selector, attr)], nil
}

func (d *fakeDriver) Screenshot(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing("screenshot"); err != nil {
		return err
	}
	d.shots = append(d.shots, path)
	return nil
}

func (d *fakeDriver) show(selectors ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sel := range selectors {
		d.visible[sel] = true
	}
}

func (d *fakeDriver) hide(selectors ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sel := range selectors {
		d.visible[sel] = false
	}
}

func testLogger() *logging.Logger {
	logger, _ := logging.NewLogger("publish-test")
	return logger
}

var _ Driver = (*fakeDriver)(nil)
