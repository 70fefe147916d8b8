// Package stats is a read-only scrape of creator dashboard metrics. It has
// no state machine; it borrows an authenticated session through the shared
// session manager and releases it on every exit path.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"redpost/pkg/auth"
	"redpost/pkg/browser"
	"redpost/pkg/config"
	"redpost/pkg/logging"
)

// DashboardURL is the creator overview page the metrics live on.
const DashboardURL = "https://creator.xiaohongshu.com/new/home"

// Metrics is one dimension's note-overview counters.
type Metrics struct {
	Views        int64 `json:"views"`
	Likes        int64 `json:"likes"`
	Collects     int64 `json:"collects"`
	Comments     int64 `json:"comments"`
	Shares       int64 `json:"shares"`
	Interactions int64 `json:"interactions"`
}

// Snapshot is one collection run across both dashboard dimensions.
type Snapshot struct {
	CollectedAt time.Time `json:"collected_at"`
	SevenDay    Metrics   `json:"seven_day"`
	ThirtyDay   *Metrics  `json:"thirty_day,omitempty"`
}

// metricPaths maps each counter to candidate paths inside the page's
// initial-state payload. Like selectors, these track the platform's markup
// and need maintenance when it changes.
var metricPaths = map[string][]string{
	"views":        {"dashboard.overview.views", "creator.dataCenter.views"},
	"likes":        {"dashboard.overview.likes", "creator.dataCenter.likes"},
	"collects":     {"dashboard.overview.collects", "creator.dataCenter.collects"},
	"comments":     {"dashboard.overview.comments", "creator.dataCenter.comments"},
	"shares":       {"dashboard.overview.shares", "creator.dataCenter.shares"},
	"interactions": {"dashboard.overview.interactions", "creator.dataCenter.interactions"},
}

const initialStateExpr = `JSON.stringify(window.__INITIAL_STATE__ || {})`

// thirtyDayToggle is the dimension switch on the dashboard.
const thirtyDayToggle = `text=近30日`

// Collector scrapes dashboard metrics using a borrowed session.
type Collector struct {
	sessions *browser.Manager
	store    *auth.Store
	gate     *auth.Gate
	cfg      *config.Config
	logger   *logging.Logger
}

// NewCollector wires a collector over shared infrastructure.
func NewCollector(sessions *browser.Manager, store *auth.Store, gate *auth.Gate, cfg *config.Config, logger *logging.Logger) *Collector {
	return &Collector{
		sessions: sessions,
		store:    store,
		gate:     gate,
		cfg:      cfg,
		logger:   logger,
	}
}

// Collect gathers the seven-day metrics and, when the dimension toggle is
// reachable, the thirty-day metrics too.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	if verdict, _ := c.gate.Check(); !verdict.Usable() {
		return nil, fmt.Errorf("credentials %s, run login first", verdict)
	}

	set, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{CollectedAt: time.Now()}

	err = c.sessions.WithSession(ctx, "stats", browser.SessionOptions{
		Headless: c.cfg.Headless,
		Timeout:  c.cfg.Browser.ElementWaitTimeout,
		Cookies:  set.PlaywrightCookies(),
	}, func(session *browser.Session) error {
		if err := session.Navigate(DashboardURL, browser.NavigateOptions{
			WaitUntil: "networkidle",
			Timeout:   c.cfg.Browser.PageLoadTimeout,
		}); err != nil {
			return fmt.Errorf("dashboard unreachable: %w", err)
		}
		if err := sleepCtx(ctx, 3*time.Second); err != nil {
			return err
		}

		metrics, err := c.scrape(session)
		if err != nil {
			return err
		}
		snapshot.SevenDay = *metrics
		c.logger.Infof("Collected 7-day metrics: %d views, %d likes", metrics.Views, metrics.Likes)

		// The 30-day dimension is best-effort; a redesigned toggle only
		// loses one dimension, not the run.
		if visible, _ := session.QueryVisible(thirtyDayToggle); visible {
			if err := session.Click(thirtyDayToggle); err == nil {
				if err := sleepCtx(ctx, 3*time.Second); err != nil {
					return err
				}
				if thirty, err := c.scrape(session); err == nil {
					snapshot.ThirtyDay = thirty
					c.logger.Infof("Collected 30-day metrics: %d views, %d likes", thirty.Views, thirty.Likes)
				}
			}
		} else {
			c.logger.Warnf("30-day toggle not found, keeping 7-day metrics only")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// scrape reads the page's initial-state payload and extracts the counters.
func (c *Collector) scrape(session *browser.Session) (*Metrics, error) {
	raw, err := session.Evaluate(initialStateExpr)
	if err != nil {
		return nil, fmt.Errorf("state payload read failed: %w", err)
	}
	return parseMetrics(raw)
}

// parseMetrics extracts the counters from a raw initial-state payload,
// trying each candidate path in order. Absent counters stay zero.
func parseMetrics(raw string) (*Metrics, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("state payload is not JSON")
	}

	metrics := &Metrics{}
	assign := map[string]*int64{
		"views":        &metrics.Views,
		"likes":        &metrics.Likes,
		"collects":     &metrics.Collects,
		"comments":     &metrics.Comments,
		"shares":       &metrics.Shares,
		"interactions": &metrics.Interactions,
	}

	for name, target := range assign {
		for _, path := range metricPaths[name] {
			if v := gjson.Get(raw, path); v.Exists() {
				*target = v.Int()
				break
			}
		}
	}
	return metrics, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
