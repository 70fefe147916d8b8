package task

import (
	"context"
	"sync"
	"time"

	"redpost/pkg/logging"
	"redpost/pkg/publish"
)

// Runner executes one publish job end to end. *publish.Pipeline satisfies
// it; tests substitute a scripted runner.
type Runner interface {
	Run(ctx context.Context, jobID string, note publish.Note, report publish.Reporter) publish.Result
}

// Service is the public job surface: create, status, result. Each created
// job gets exactly one pipeline execution, spawned here, which is the sole
// mutator of that job until it terminates.
type Service struct {
	registry  *Registry
	runner    Runner
	retention time.Duration
	logger    *logging.Logger
	wg        sync.WaitGroup
}

// NewService wires the job surface over a registry and a runner.
func NewService(registry *Registry, runner Runner, retention time.Duration, logger *logging.Logger) *Service {
	return &Service{
		registry:  registry,
		runner:    runner,
		retention: retention,
		logger:    logger,
	}
}

// Create registers a job for the note and spawns its pipeline execution.
// Old finished jobs are swept opportunistically on each create.
func (s *Service) Create(note publish.Note) string {
	s.registry.Evict(s.retention)

	id := s.registry.Create(note)

	ctx, cancel := context.WithCancel(context.Background())
	s.registry.RegisterCancel(id, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.execute(ctx, id, note)
	}()

	return id
}

// Status returns the polling snapshot for a job.
func (s *Service) Status(id string) (StatusView, bool) {
	job, ok := s.registry.Get(id)
	if !ok {
		return StatusView{}, false
	}
	return StatusView{
		Status:     job.Status,
		Progress:   job.Progress,
		Message:    job.Message,
		IsTerminal: job.Terminal(),
	}, true
}

// Result returns the terminal payload once the job has finished. The
// second return is false while the job is still running, the third when
// the id is unknown.
func (s *Service) Result(id string) (publish.Result, bool, bool) {
	job, ok := s.registry.Get(id)
	if !ok {
		return publish.Result{}, false, false
	}
	if !job.Terminal() || job.Result == nil {
		return publish.Result{}, false, true
	}
	return *job.Result, true, true
}

// Cancel aborts a running job.
func (s *Service) Cancel(id string) bool {
	return s.registry.Cancel(id)
}

// Wait blocks until every spawned execution has finished. Used on
// shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) execute(ctx context.Context, id string, note publish.Note) {
	result := s.runner.Run(ctx, id, note, &stageReporter{registry: s.registry, id: id})

	status := publish.StageCompleted
	if !result.Success {
		status = publish.StageFailed
	}
	progress := status.Progress()
	s.registry.Apply(id, Update{
		Status:   &status,
		Progress: &progress,
		Message:  &result.Message,
		Result:   &result,
	})

	s.logger.Infof("Job %s finished: %s", id, status)
}

// stageReporter pushes pipeline stage transitions into the registry as
// they happen, so pollers see the stage currently in progress.
type stageReporter struct {
	registry *Registry
	id       string
}

func (r *stageReporter) StageChange(stage publish.Stage, progress int, message string) {
	r.registry.Apply(r.id, Update{
		Status:   &stage,
		Progress: &progress,
		Message:  &message,
	})
}
