package auth

import (
	"context"
	"fmt"
	"time"

	"redpost/pkg/browser"
	"redpost/pkg/config"
	"redpost/pkg/logging"
)

// settleDelay is how long the flow waits after login detection before
// capturing cookies. The freshly authenticated page needs a moment before
// every credential record is set.
const settleDelay = 3 * time.Second

// LoginFlow opens a visible browser on the login page, waits for the human
// to finish logging in, then captures and persists the resulting
// credential set. It is the only writer of the credential store.
type LoginFlow struct {
	sessions *browser.Manager
	store    *Store
	gate     *Gate
	cfg      config.AuthConfig
	logger   *logging.Logger
}

// NewLoginFlow wires a login flow over shared infrastructure.
func NewLoginFlow(sessions *browser.Manager, store *Store, gate *Gate, cfg config.AuthConfig, logger *logging.Logger) *LoginFlow {
	return &LoginFlow{
		sessions: sessions,
		store:    store,
		gate:     gate,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run drives one complete login: navigate, detect completion, capture,
// replace the persisted set wholesale. The session always runs headful;
// the platform's QR login cannot be completed without a window.
func (f *LoginFlow) Run(ctx context.Context) error {
	f.logger.Infof("Starting login flow, waiting up to %s", f.cfg.LoginTimeout)

	return f.sessions.WithSession(ctx, "login", browser.SessionOptions{
		Headless: false,
	}, func(session *browser.Session) error {
		if err := session.Navigate(LoginEntryURL, browser.NavigateOptions{
			WaitUntil: "domcontentloaded",
		}); err != nil {
			return fmt.Errorf("cannot reach login page: %w", err)
		}

		detector := NewDetector(session, f.cfg.LoginPollInterval, f.logger)
		state, err := detector.Wait(ctx, f.cfg.LoginTimeout)
		if err != nil {
			return err
		}

		switch state {
		case StateAuthenticated:
			// fall through to capture
		case StateTimedOut:
			return fmt.Errorf("login not completed within %s", f.cfg.LoginTimeout)
		default:
			return fmt.Errorf("login failed in state %s", state)
		}

		// Give the authenticated page a moment to finish setting cookies
		// before capture; the detector fires on first sight of the landmark.
		timer := time.NewTimer(settleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		cookies, err := session.Cookies()
		if err != nil {
			return fmt.Errorf("credential capture failed: %w", err)
		}

		set := NewCredentialSet(cookies)
		if err := f.store.Replace(set); err != nil {
			return err
		}

		verdict, detail := f.gate.Evaluate(set)
		f.logger.Infof("Login complete: verdict %s, coverage %s", verdict, detail.Coverage)
		if !verdict.Usable() {
			f.logger.Warnf("Captured set judged %s; publishing may fail until re-login", verdict)
		}
		return nil
	})
}
