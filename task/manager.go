// Package task is an in-process stand-in for the Celery task queue
// spec.md's external-interfaces section assumes: a task_id -> State map
// plus a bounded worker pool that drives coordinator.Run jobs, in the
// same shape as libvuln/updates/manager.go's Manager.Run. It is
// explicitly not a durable queue: state lives only in memory and is
// lost across restarts.
package task

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/quay/zlog"
	"golang.org/x/sync/semaphore"

	"github.com/quay/ubi-manifest/coordinator"
	"github.com/quay/ubi-manifest/internal/obsmetrics"
)

// LockSource abstracts over how a job's output repos are locked against
// concurrent runs from other ubimanifestd replicas. An online system
// needs a distributed lock (pkg/ctxlock/v2.Locker, over the same
// Postgres pool the result store uses); a single-process deployment can
// leave this nil and rely on the worker-pool's own serialization.
type LockSource interface {
	TryLock(context.Context, string) (context.Context, context.CancelFunc)
}

// State is a task's lifecycle stage.
type State string

const (
	Pending   State = "pending"
	Running   State = "running"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// DefaultBatchSize is the default number of concurrently running
// coordinator jobs.
var DefaultBatchSize = runtime.GOMAXPROCS(0)

// Manager launches coordinator.Run jobs on a bounded worker pool and
// tracks each job's state in memory.
type Manager struct {
	Coordinator *coordinator.Coordinator

	// BatchSize caps the number of jobs run concurrently. Zero selects
	// DefaultBatchSize.
	BatchSize int

	// Locks, if set, is consulted before running a job: the job is
	// skipped (marked Failed) if another replica already holds the
	// lock for its output repos.
	Locks LockSource

	initOnce sync.Once
	sem      *semaphore.Weighted
	mu       sync.Mutex
	states   map[string]State
}

func (m *Manager) init() {
	m.initOnce.Do(func() {
		size := m.BatchSize
		if size <= 0 {
			size = DefaultBatchSize
		}
		m.sem = semaphore.NewWeighted(int64(size))
		m.states = make(map[string]State)
	})
}

func (m *Manager) setState(id string, s State) {
	m.mu.Lock()
	m.states[id] = s
	m.mu.Unlock()
	obsmetrics.TaskStates.WithLabelValues(string(s)).Inc()
}

// State returns the current state of id and whether id is known.
func (m *Manager) State(id string) (State, bool) {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	return s, ok
}

// Submit registers a new task id for job and starts it running in the
// background once a worker-pool slot is free. The returned id is
// immediately queryable via State, reporting Pending until the job
// actually starts.
func (m *Manager) Submit(ctx context.Context, job coordinator.Job) string {
	m.init()
	id := uuid.NewString()
	m.setState(id, Pending)

	go func() {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			zlog.Debug(ctx).Str("task_id", id).Err(err).Msg("sem acquire failed, task abandoned")
			m.setState(id, Failed)
			return
		}
		defer m.sem.Release(1)

		if m.Locks != nil {
			lockCtx, done := m.Locks.TryLock(ctx, jobKey(job))
			defer done()
			if err := lockCtx.Err(); err != nil {
				zlog.Debug(ctx).Str("task_id", id).Err(err).Msg("lock held elsewhere, task abandoned")
				m.setState(id, Failed)
				return
			}
			ctx = lockCtx
		}

		m.setState(id, Running)
		if err := m.Coordinator.Run(ctx, job); err != nil {
			zlog.Error(ctx).Str("task_id", id).Err(err).Msg("depsolve job failed")
			m.setState(id, Failed)
			return
		}
		m.setState(id, Succeeded)
	}()

	return id
}

// jobKey derives the lock key for a job: its output repo ids joined,
// so two jobs touching disjoint output repos never contend.
func jobKey(job coordinator.Job) string {
	ids := make([]string, 0, len(job.Groups))
	for _, g := range job.Groups {
		ids = append(ids, g.Group.BinaryOutputRepoID)
	}
	return strings.Join(ids, ",")
}
