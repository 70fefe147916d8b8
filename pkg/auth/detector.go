package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"redpost/pkg/logging"
	"redpost/pkg/poll"
)

// LoginState is the detector's view of a login attempt in progress.
type LoginState string

const (
	// StateAwaitingLogin means the session still shows a login surface.
	StateAwaitingLogin LoginState = "awaiting-login"
	// StateAuthenticated means the session reached the creator area.
	StateAuthenticated LoginState = "authenticated"
	// StateError means the page showed a failure signature, or probing the
	// page failed repeatedly enough to assume a dead session.
	StateError LoginState = "error"
	// StateTimedOut means the ceiling elapsed with no terminal signal.
	StateTimedOut LoginState = "timed-out"
)

// Terminal reports whether polling has stopped in this state.
func (s LoginState) Terminal() bool {
	return s != StateAwaitingLogin
}

// PageProbe is the read-only page surface the detector samples each tick.
// *browser.Session satisfies it.
type PageProbe interface {
	URL() string
	QueryVisible(selector string) (bool, error)
}

// LoginEntryURL is where the login flow navigates before detection starts.
const LoginEntryURL = "https://creator.xiaohongshu.com/login"

// DefaultPollInterval is the detector's tick when none is configured.
const DefaultPollInterval = 2 * time.Second

// maxProbeFailures is how many consecutive sampling failures are tolerated
// before the session is assumed dead.
const maxProbeFailures = 3

var loginFormSelectors = []string{
	"input[type='password']",
	"input[placeholder*='验证码']",
	".login-box",
	".qrcode-img",
}

var authenticatedLandmarks = []string{
	".creator-tab",
	".publish-video",
	"a[href*='/publish/publish']",
}

var authenticatedPathFragments = []string{
	"/new/home",
	"/publish/publish",
	"/creator/home",
	"/statistics",
}

var errorSignatureSelectors = []string{
	".error-page",
	"text=登录失败",
	"text=访问异常",
}

// Detector is the polling state machine that watches a freshly navigated
// session until the human (or QR scan) completes login. It decides state
// from URL and DOM alone; credential capture and validation happen
// afterwards, because the authenticated page may need a moment before every
// cookie is set.
type Detector struct {
	probe    PageProbe
	interval time.Duration
	logger   *logging.Logger
}

// NewDetector creates a detector sampling the given probe.
func NewDetector(probe PageProbe, interval time.Duration, logger *logging.Logger) *Detector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Detector{
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
}

// Wait polls until the session reaches a terminal state or the ceiling
// elapses. Cancellation of ctx aborts the wait and returns the context
// error alongside the last observed state.
func (d *Detector) Wait(ctx context.Context, ceiling time.Duration) (LoginState, error) {
	state := StateAwaitingLogin
	failures := 0

	err := poll.Until(ctx, d.interval, ceiling, func(ctx context.Context) (bool, error) {
		sampled, err := d.sample()
		if err != nil {
			failures++
			d.logger.Warnf("Login probe failed (%d/%d): %v", failures, maxProbeFailures, err)
			if failures >= maxProbeFailures {
				state = StateError
				return true, nil
			}
			return false, nil
		}

		failures = 0
		state = sampled
		return sampled.Terminal(), nil
	})

	if err != nil {
		if errors.Is(err, poll.ErrCeiling) {
			d.logger.Warnf("Login detection timed out after %s", ceiling)
			return StateTimedOut, nil
		}
		return state, err
	}

	d.logger.Infof("Login detection finished: %s", state)
	return state, nil
}

// sample takes one reading of the page and classifies it. Order matters: an
// active login surface keeps us waiting even if stale authenticated markup
// is still attached behind it.
func (d *Detector) sample() (LoginState, error) {
	url := d.probe.URL()

	onLoginPath := strings.Contains(url, "/login")
	formVisible, err := d.anyVisible(loginFormSelectors)
	if err != nil {
		return StateAwaitingLogin, err
	}
	if onLoginPath || formVisible {
		return StateAwaitingLogin, nil
	}

	for _, fragment := range authenticatedPathFragments {
		if strings.Contains(url, fragment) {
			return StateAuthenticated, nil
		}
	}
	landmarkVisible, err := d.anyVisible(authenticatedLandmarks)
	if err != nil {
		return StateAwaitingLogin, err
	}
	if landmarkVisible {
		return StateAuthenticated, nil
	}

	errorVisible, err := d.anyVisible(errorSignatureSelectors)
	if err != nil {
		return StateAwaitingLogin, err
	}
	if errorVisible {
		return StateError, nil
	}

	return StateAwaitingLogin, nil
}

func (d *Detector) anyVisible(selectors []string) (bool, error) {
	for _, sel := range selectors {
		visible, err := d.probe.QueryVisible(sel)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}
