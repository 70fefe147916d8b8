// Package main provides the redpost CLI for publishing notes to the
// xiaohongshu creator center. It drives an interactive QR login, runs
// publish jobs through the staged pipeline with live progress output, and
// scrapes the creator dashboard metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"redpost/pkg/auth"
	"redpost/pkg/browser"
	"redpost/pkg/config"
	"redpost/pkg/logging"
	"redpost/pkg/publish"
	"redpost/pkg/stats"
	"redpost/pkg/task"
)

const version = "0.1.0"

const usage = `redpost v%s - xiaohongshu creator center automation

Usage:
  redpost login    [-config FILE]                     interactive QR login
  redpost publish  [-config FILE] -note FILE [-watch] publish a note
  redpost stats    [-config FILE] [-json]             dashboard metrics
  redpost version                                     print version

Flags per command are listed with -h, e.g. "redpost publish -h".
`

func main() {
	// Optional .env next to the binary; absence is the normal case.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, version)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()
	defer cancel()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, os.Args[2:])
	case "publish":
		err = runPublish(ctx, os.Args[2:])
	case "stats":
		err = runStats(ctx, os.Args[2:])
	case "version":
		fmt.Printf("redpost v%s\n", version)
	case "-h", "--help", "help":
		fmt.Printf(usage, version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		fmt.Fprintf(os.Stderr, usage, version)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the shared infrastructure every command wires up.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	sessions *browser.Manager
	store    *auth.Store
	gate     *auth.Gate
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	logger, err := logging.NewLogger("cli")
	if err != nil {
		// Fallback logger already reported the problem to stderr.
		fmt.Fprintln(os.Stderr, "Warning: file logging unavailable, using stderr")
	}

	store := auth.NewStore(cfg.CookieFile, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: browser.NewManager(),
		store:    store,
		gate:     auth.NewGate(store, cfg.Auth.MissingCookieTolerance, logger),
	}, nil
}

func (a *app) start() error {
	a.sessions.SetMaxSessions(a.cfg.Browser.MaxSessions)
	if err := a.sessions.Initialize(); err != nil {
		return fmt.Errorf("browser runtime unavailable: %w", err)
	}
	return nil
}

func (a *app) close() {
	if err := a.sessions.Shutdown(); err != nil {
		a.logger.Warnf("Browser shutdown reported: %v", err)
	}
	_ = a.logger.Close()
}

// applyEnvOverrides layers a small set of environment variables over the
// loaded file, for container deployments where a config file is awkward.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("REDPOST_COOKIE_FILE"); v != "" {
		cfg.CookieFile = v
	}
	if v := os.Getenv("REDPOST_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = headless
		}
	}
}

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	if err := a.start(); err != nil {
		return err
	}
	defer a.close()

	fmt.Println("Opening login window, scan the QR code with the app...")
	flow := auth.NewLoginFlow(a.sessions, a.store, a.gate, a.cfg.Auth, a.logger)
	if err := flow.Run(ctx); err != nil {
		return err
	}

	verdict, detail := a.gate.Check()
	fmt.Printf("Login complete: credentials %s (%s coverage)\n", verdict, detail.Coverage)
	return nil
}

func runPublish(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to config file")
	notePath := fs.String("note", "", "path to note file (YAML or JSON)")
	title := fs.String("title", "", "note title (overrides note file)")
	body := fs.String("body", "", "note body (overrides note file)")
	images := fs.String("images", "", "comma-separated image paths")
	video := fs.String("video", "", "video path")
	topics := fs.String("topics", "", "comma-separated topics")
	location := fs.String("location", "", "location label to attach to the note")
	watch := fs.Bool("watch", true, "print stage progress while the job runs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	note, err := loadNote(*notePath)
	if err != nil {
		return err
	}
	if *title != "" {
		note.Title = *title
	}
	if *body != "" {
		note.Body = *body
	}
	if *images != "" {
		note.Images = splitList(*images)
	}
	if *video != "" {
		note.Video = *video
	}
	if *topics != "" {
		note.Topics = splitList(*topics)
	}
	if *location != "" {
		note.Location = *location
	}
	// Pull inline #tags out of the body and merge them with explicit topics.
	note = publish.NewNote(note.Title, note.Body, note.Images, note.Video, note.Topics, note.Location)

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	if err := note.Validate(a.cfg.Limits); err != nil {
		return err
	}
	if err := a.start(); err != nil {
		return err
	}
	defer a.close()

	pipeline := publish.NewPipeline(a.cfg, a.sessions, a.gate, a.store, a.logger)
	registry := task.NewRegistry(a.logger)
	service := task.NewService(registry, pipeline, a.cfg.Tasks.Retention, a.logger)

	id := service.Create(note)
	fmt.Printf("Job %s created\n", id)

	result, err := watchJob(ctx, service, id, *watch)
	if err != nil {
		return err
	}

	payload, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(payload))
	if !result.Success {
		return fmt.Errorf("publish failed: %s", result.Message)
	}
	return nil
}

// watchJob polls the job until it terminates, printing each stage
// transition once. Cancellation propagates to the running pipeline.
func watchJob(ctx context.Context, service *task.Service, id string, verbose bool) (publish.Result, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastStatus publish.Stage
	for {
		select {
		case <-ctx.Done():
			service.Cancel(id)
			service.Wait()
			return publish.Result{}, fmt.Errorf("job %s cancelled", id)
		case <-ticker.C:
		}

		view, ok := service.Status(id)
		if !ok {
			return publish.Result{}, fmt.Errorf("job %s disappeared", id)
		}
		if verbose && view.Status != lastStatus {
			fmt.Printf("  [%3d%%] %-22s %s\n", view.Progress, view.Status, view.Message)
			lastStatus = view.Status
		}
		if !view.IsTerminal {
			continue
		}

		service.Wait()
		result, ready, _ := service.Result(id)
		if !ready {
			return publish.Result{}, fmt.Errorf("job %s ended without a result", id)
		}
		return result, nil
	}
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to config file")
	asJSON := fs.Bool("json", false, "print the raw snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	if err := a.start(); err != nil {
		return err
	}
	defer a.close()

	snapshot, err := stats.NewCollector(a.sessions, a.store, a.gate, a.cfg, a.logger).Collect(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		payload, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(payload))
		return nil
	}

	fmt.Printf("Dashboard metrics (collected %s)\n", snapshot.CollectedAt.Format(time.RFC3339))
	printMetrics("last 7 days", &snapshot.SevenDay)
	if snapshot.ThirtyDay != nil {
		printMetrics("last 30 days", snapshot.ThirtyDay)
	}
	return nil
}

func printMetrics(label string, m *stats.Metrics) {
	fmt.Printf("  %s: views %d, likes %d, collects %d, comments %d, shares %d, interactions %d\n",
		label, m.Views, m.Likes, m.Collects, m.Comments, m.Shares, m.Interactions)
}

// loadNote reads a note draft from a YAML or JSON file. An empty path
// yields a zero note for callers composing entirely from flags.
func loadNote(path string) (publish.Note, error) {
	var note publish.Note
	if path == "" {
		return note, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return note, fmt.Errorf("cannot read note file: %w", err)
	}
	// YAML is a superset of JSON, so one decoder covers both formats.
	if err := yaml.Unmarshal(data, &note); err != nil {
		return note, fmt.Errorf("cannot parse note file: %w", err)
	}
	return note, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfigPath() string {
	if v := os.Getenv("REDPOST_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "redpost.yaml"
	}
	return home + "/.redpost/config.yaml"
}
