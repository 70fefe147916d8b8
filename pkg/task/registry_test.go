package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpost/pkg/logging"
	"redpost/pkg/publish"
)

func testLogger() *logging.Logger {
	logger, _ := logging.NewLogger("task-test")
	return logger
}

func testRegistry() *Registry {
	return NewRegistry(testLogger())
}

func stage(s publish.Stage) *publish.Stage { return &s }
func intp(n int) *int                      { return &n }
func strp(s string) *string                { return &s }

func TestRegistryCreate(t *testing.T) {
	r := testRegistry()

	id := r.Create(publish.Note{Title: "t"})
	require.Len(t, id, 8)

	job, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, publish.StagePending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, "queued", job.Message)
	assert.False(t, job.StartedAt.IsZero())
	assert.False(t, job.Terminal())
}

func TestRegistryCreateUniqueIDs(t *testing.T) {
	r := testRegistry()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := r.Create(publish.Note{})
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRegistryApplyPartialUpdate(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})

	r.Apply(id, Update{Status: stage(publish.StageUploading), Progress: intp(50), Message: strp("uploading")})
	r.Apply(id, Update{Progress: intp(60)})

	job, _ := r.Get(id)
	assert.Equal(t, publish.StageUploading, job.Status, "progress-only update must not touch status")
	assert.Equal(t, 60, job.Progress)
	assert.Equal(t, "uploading", job.Message, "progress-only update must not touch message")
}

func TestRegistryProgressMonotonic(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})

	r.Apply(id, Update{Progress: intp(70)})
	r.Apply(id, Update{Progress: intp(40)})

	job, _ := r.Get(id)
	assert.Equal(t, 70, job.Progress, "progress never moves backwards on a live job")
}

func TestRegistryFailureResetsProgress(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})

	r.Apply(id, Update{Progress: intp(80)})
	r.Apply(id, Update{Status: stage(publish.StageFailed), Progress: intp(0)})

	job, _ := r.Get(id)
	assert.Equal(t, publish.StageFailed, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, job.EndedAt.IsZero(), "terminal transition stamps the end time")
}

func TestRegistryUnknownIDDropped(t *testing.T) {
	r := testRegistry()

	r.Apply("nothere", Update{Progress: intp(50)}) // must not panic

	_, ok := r.Get("nothere")
	assert.False(t, ok)
	assert.False(t, r.Cancel("nothere"))
}

func TestRegistryCancelFiresHandle(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})

	ctx, cancel := context.WithCancel(context.Background())
	r.RegisterCancel(id, cancel)

	require.True(t, r.Cancel(id))
	assert.Error(t, ctx.Err())
}

func TestRegistryCancelWithoutHandle(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})

	assert.False(t, r.Cancel(id))
}

func TestRegistryEvictTerminalOnly(t *testing.T) {
	r := testRegistry()
	current := time.Now()
	r.now = func() time.Time { return current }

	finished := r.Create(publish.Note{})
	live := r.Create(publish.Note{})
	r.Apply(finished, Update{Status: stage(publish.StageCompleted)})
	r.Apply(live, Update{Progress: intp(50)})

	current = current.Add(2 * time.Hour)
	removed := r.Evict(time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := r.Get(finished)
	assert.False(t, ok)
	_, ok = r.Get(live)
	assert.True(t, ok, "live jobs are never evicted regardless of age")
}

func TestRegistryEvictKeepsRecentTerminal(t *testing.T) {
	r := testRegistry()
	id := r.Create(publish.Note{})
	r.Apply(id, Update{Status: stage(publish.StageCompleted)})

	assert.Equal(t, 0, r.Evict(time.Hour))
	_, ok := r.Get(id)
	assert.True(t, ok)
}

func TestRegistryEvictFiresLeftoverCancel(t *testing.T) {
	r := testRegistry()
	current := time.Now()
	r.now = func() time.Time { return current }

	id := r.Create(publish.Note{})
	ctx, cancel := context.WithCancel(context.Background())
	r.RegisterCancel(id, cancel)
	r.Apply(id, Update{Status: stage(publish.StageCompleted)})

	current = current.Add(2 * time.Hour)
	r.Evict(time.Hour)

	assert.Error(t, ctx.Err(), "eviction releases the execution context")
}

func TestRegistryConcurrentJobsDoNotSerialize(t *testing.T) {
	r := testRegistry()
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = r.Create(publish.Note{})
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for p := 1; p <= 100; p++ {
				r.Apply(id, Update{Progress: intp(p)})
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		job, ok := r.Get(id)
		require.True(t, ok)
		assert.Equal(t, 100, job.Progress)
	}
	assert.Equal(t, len(ids), r.Len())
}
