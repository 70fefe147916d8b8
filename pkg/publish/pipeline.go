package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"redpost/pkg/auth"
	"redpost/pkg/browser"
	"redpost/pkg/config"
	"redpost/pkg/logging"
	"redpost/pkg/poll"
)

// PublishURL is the compose page every job drives.
const PublishURL = "https://creator.xiaohongshu.com/publish/publish?from=menu"

// successURLFragments mark the post-submit confirmation page.
var successURLFragments = []string{"/publish/success", "success", "complete"}

// Stage is one named step of the pipeline. Stages advance strictly in
// order; any failure jumps straight to StageFailed.
type Stage string

const (
	StagePending             Stage = "pending"
	StageValidatingAuth      Stage = "validating-auth"
	StageInitializingSession Stage = "initializing-session"
	StageNavigating          Stage = "navigating"
	StageSelectingMode       Stage = "selecting-mode"
	StageUploading           Stage = "uploading"
	StageAwaitingUpload      Stage = "awaiting-upload"
	StageFillingContent      Stage = "filling-content"
	StageSubmitting          Stage = "submitting"
	StageCompleted           Stage = "completed"
	StageFailed              Stage = "failed"
)

// stageProgress is the progress floor reported at each stage's entry.
var stageProgress = map[Stage]int{
	StagePending:             0,
	StageValidatingAuth:      5,
	StageInitializingSession: 10,
	StageNavigating:          25,
	StageSelectingMode:       40,
	StageUploading:           50,
	StageAwaitingUpload:      60,
	StageFillingContent:      70,
	StageSubmitting:          80,
	StageCompleted:           100,
	StageFailed:              0,
}

// Progress returns the stage's progress floor.
func (s Stage) Progress() int {
	return stageProgress[s]
}

// Terminal reports whether the stage ends the job.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Reporter receives stage transitions as they happen, before each stage's
// work begins, so an observer polling the job sees "in progress on stage
// X" rather than only pre/post snapshots.
type Reporter interface {
	StageChange(stage Stage, progress int, message string)
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	Success   bool                      `json:"success"`
	PostURL   string                    `json:"post_url,omitempty"`
	Message   string                    `json:"message"`
	ErrorType string                    `json:"error_type,omitempty"`
	Hint      string                    `json:"hint,omitempty"`
	Topics    []TopicVerificationRecord `json:"topics,omitempty"`
}

// Pipeline drives one note through the fixed publish stage sequence. One
// pipeline value is shared across jobs; each Run owns its own browser
// session, so concurrent jobs cannot clobber each other's page state.
type Pipeline struct {
	cfg      *config.Config
	sessions *browser.Manager
	gate     *auth.Gate
	store    *auth.Store
	logger   *logging.Logger
}

// NewPipeline wires a pipeline over shared infrastructure.
func NewPipeline(cfg *config.Config, sessions *browser.Manager, gate *auth.Gate, store *auth.Store, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		sessions: sessions,
		gate:     gate,
		store:    store,
		logger:   logger,
	}
}

// Run executes the full stage sequence for one note. It never panics and
// never returns an error: every failure is folded into the Result so the
// registry always ends up with a terminal record.
func (p *Pipeline) Run(ctx context.Context, jobID string, note Note, report Reporter) Result {
	p.logger.Infof("Job %s: publishing %q", jobID, note.Title)

	// Pre-flight runs before any browser session exists, so a doomed job
	// costs nothing.
	report.StageChange(StageValidatingAuth, StageValidatingAuth.Progress(), "validating credentials and draft")

	verdict, detail := p.gate.Check()
	if !verdict.Usable() {
		return p.fail(jobID, NewError(KindAuth, "credentials %s (coverage %s)", verdict, coverageOf(detail)))
	}
	if err := note.Validate(p.cfg.Limits); err != nil {
		return p.fail(jobID, err)
	}

	set, err := p.store.Load()
	if err != nil {
		return p.fail(jobID, WrapError(KindAuth, err, "credential set vanished after validation"))
	}

	report.StageChange(StageInitializingSession, StageInitializingSession.Progress(), "starting browser session")

	var result Result
	sessionErr := p.sessions.WithSession(ctx, "publish-"+jobID, browser.SessionOptions{
		Headless: p.cfg.Headless,
		Timeout:  p.cfg.Browser.ElementWaitTimeout,
		Cookies:  set.PlaywrightCookies(),
	}, func(session *browser.Session) error {
		report.StageChange(StageInitializingSession, 15, "browser session ready")
		result = p.drive(ctx, jobID, note, session, report)
		return nil
	})

	if sessionErr != nil {
		if ctx.Err() != nil {
			return p.fail(jobID, WrapError(KindSession, ctx.Err(), "job cancelled"))
		}
		return p.fail(jobID, WrapError(KindSession, sessionErr, "browser session could not be created"))
	}
	return result
}

// drive runs the browser-facing stages against an established session.
func (p *Pipeline) drive(ctx context.Context, jobID string, note Note, d Driver, report Reporter) Result {
	resolver := NewResolver(d, p.logger)
	uploader := NewUploader(d, resolver, p.cfg.Upload, p.logger)
	filler := NewFiller(d, resolver, p.cfg.Limits, p.logger)
	annotator := NewAnnotator(d, resolver, p.logger)

	report.StageChange(StageNavigating, StageNavigating.Progress(), "opening compose page")
	if err := d.Navigate(PublishURL, browser.NavigateOptions{
		WaitUntil: "domcontentloaded",
		Timeout:   p.cfg.Browser.PageLoadTimeout,
	}); err != nil {
		return p.failScene(jobID, d, WrapError(KindSession, err, "navigation to compose page failed"))
	}
	if err := settle(ctx, 2*time.Second); err != nil {
		return p.cancelled(jobID, err)
	}
	if !strings.Contains(d.URL(), "publish") {
		return p.failScene(jobID, d, NewError(KindSession,
			"compose page unreachable, landed on %s; credentials may be stale", d.URL()))
	}

	report.StageChange(StageSelectingMode, StageSelectingMode.Progress(), "selecting publish mode")
	p.selectMode(ctx, note.MediaKind(), resolver, d)

	report.StageChange(StageUploading, StageUploading.Progress(),
		fmt.Sprintf("uploading %d media files", len(note.MediaPaths())))
	if err := uploader.Submit(note.MediaPaths()); err != nil {
		return p.failScene(jobID, d, err)
	}
	if err := settle(ctx, uploadSettle); err != nil {
		return p.cancelled(jobID, err)
	}

	report.StageChange(StageAwaitingUpload, StageAwaitingUpload.Progress(), "waiting for upload to complete")
	if err := uploader.AwaitCompletion(ctx, note.MediaKind()); err != nil {
		if ctx.Err() != nil {
			return p.cancelled(jobID, ctx.Err())
		}
		return p.failScene(jobID, d, err)
	}

	report.StageChange(StageFillingContent, StageFillingContent.Progress(), "filling title and body")
	if err := filler.FillTitle(ctx, note.Title); err != nil {
		return p.failScene(jobID, d, err)
	}
	if err := filler.FillBody(ctx, note.Body); err != nil {
		return p.failScene(jobID, d, err)
	}

	// Topic failure is never a publish failure; total conversion failure
	// still proceeds to submission.
	topics, err := annotator.Annotate(ctx, note.Topics)
	if err != nil {
		return p.cancelled(jobID, err)
	}

	report.StageChange(StageSubmitting, StageSubmitting.Progress(), "submitting note")
	postURL, err := p.submit(ctx, resolver, d)
	if err != nil {
		if ctx.Err() != nil {
			return p.cancelled(jobID, ctx.Err())
		}
		return p.failScene(jobID, d, err)
	}

	p.logger.Infof("Job %s: published successfully", jobID)
	return Result{
		Success: true,
		PostURL: postURL,
		Message: "note published",
		Topics:  topics,
	}
}

// selectMode clicks the tab matching the note's media kind. The compose
// page sometimes opens in the right mode already, so a missing tab is a
// warning, not a failure.
func (p *Pipeline) selectMode(ctx context.Context, kind MediaKind, resolver *Resolver, d Driver) {
	target := TargetImageModeTab
	if kind == MediaVideo {
		target = TargetVideoModeTab
	}

	selector, err := resolver.Resolve(target)
	if err != nil {
		p.logger.Warnf("Mode tab not found, assuming correct mode already active: %v", err)
		return
	}
	if err := d.Click(selector); err != nil {
		p.logger.Warnf("Mode tab click failed, continuing: %v", err)
		return
	}
	if err := settle(ctx, time.Second); err == nil {
		p.logger.Infof("Switched compose mode for %s publishing", kind)
	}
}

// submitAttempts bounds how often the publish button is re-clicked when no
// confirmation follows. The button occasionally swallows the first click
// while the page is still settling.
const submitAttempts = 3

// submit clicks the publish button and confirms the platform accepted the
// note, returning the confirmation URL when one is reachable.
func (p *Pipeline) submit(ctx context.Context, resolver *Resolver, d Driver) (string, error) {
	selector, err := resolver.Resolve(TargetPublishButton)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= submitAttempts; attempt++ {
		if err := d.Click(selector); err != nil {
			return "", WrapError(KindSession, err, "publish button click failed")
		}

		err := poll.Until(ctx, 400*time.Millisecond, 2*time.Second, func(context.Context) (bool, error) {
			return isSuccessURL(d.URL()), nil
		})
		switch {
		case err == nil:
			return d.URL(), nil
		case errors.Is(err, poll.ErrCeiling):
			if attempt < submitAttempts {
				p.logger.Warnf("No confirmation after click %d/%d, clicking publish again", attempt, submitAttempts)
			}
		default:
			return "", err
		}
	}

	// No explicit confirmation URL; the platform often holds the note for
	// review instead of redirecting. Treated as accepted.
	p.logger.Infof("No confirmation redirect observed, note submitted for review (url %s)", d.URL())
	return "", nil
}

func isSuccessURL(url string) bool {
	for _, fragment := range successURLFragments {
		if strings.Contains(url, fragment) {
			return true
		}
	}
	return false
}

// failScene snapshots the page before folding the error into a terminal
// result, so a failed stage leaves the scene it died on next to the logs.
func (p *Pipeline) failScene(jobID string, d Driver, err error) Result {
	if dir, dirErr := logging.GetLogDirectory(); dirErr == nil {
		shot := filepath.Join(dir, jobID+"-failure.png")
		if shotErr := d.Screenshot(shot); shotErr != nil {
			p.logger.Warnf("Job %s: failure screenshot not captured: %v", jobID, shotErr)
		} else {
			p.logger.Infof("Job %s: failure scene saved to %s", jobID, shot)
		}
	}
	return p.fail(jobID, err)
}

func (p *Pipeline) fail(jobID string, err error) Result {
	p.logger.Errorf("Job %s failed: %v", jobID, err)

	result := Result{Success: false, Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		result.ErrorType = e.ErrorType()
		result.Hint = e.Hint()
	} else {
		result.ErrorType = string(KindSession)
	}
	return result
}

func (p *Pipeline) cancelled(jobID string, err error) Result {
	p.logger.Warnf("Job %s cancelled: %v", jobID, err)
	return Result{
		Success:   false,
		Message:   "job cancelled",
		ErrorType: string(KindTimeout),
	}
}

func coverageOf(detail auth.GateDetail) string {
	if detail.Coverage == "" {
		return "0/0"
	}
	return detail.Coverage
}
