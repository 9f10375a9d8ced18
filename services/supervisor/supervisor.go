// Package supervisor runs long-lived tasks, isolating panics and errors per
// task and restarting them with backoff.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/types"
	"powermon-go/x/timex"
)

// TopicTask returns system/task/<name>.
func TopicTask(name string) bus.Topic { return bus.T("system", "task", name) }

// Func is a task body. It returns nil when ctx ends.
type Func func(ctx context.Context) error

type Options struct {
	MinBackoff time.Duration // 0 => 250 ms
	MaxBackoff time.Duration // 0 => 5 s
}

type Supervisor struct {
	conn *bus.Connection
	log  zerolog.Logger
	opts Options
	wg   sync.WaitGroup

	mu     sync.Mutex
	status map[string]types.TaskStatus
}

func New(conn *bus.Connection, log zerolog.Logger, opts Options) *Supervisor {
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 5 * time.Second
		if opts.MaxBackoff < opts.MinBackoff {
			opts.MaxBackoff = opts.MinBackoff
		}
	}
	return &Supervisor{conn: conn, log: log, opts: opts, status: map[string]types.TaskStatus{}}
}

// Go starts fn under supervision.
//   - nil return or ctx end: stopped
//   - fatal error (errcode.IsFatal): failed, not restarted
//   - other error or panic: restarted after backoff
func (s *Supervisor) Go(ctx context.Context, name string, fn Func) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, name, fn)
	}()
}

// Wait blocks until every task has ended.
func (s *Supervisor) Wait() { s.wg.Wait() }

// Status returns the last status of a task.
func (s *Supervisor) Status(name string) (types.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	return st, ok
}

func (s *Supervisor) supervise(ctx context.Context, name string, fn Func) {
	log := s.log.With().Str("task", name).Logger()
	backoff := backoffSeq(s.opts.MinBackoff, s.opts.MaxBackoff)
	restarts := 0

	for {
		s.setStatus(name, types.TaskRunning, restarts, nil)
		started := time.Now()
		err := runOnce(ctx, fn)

		if ctx.Err() != nil || err == nil {
			s.setStatus(name, types.TaskStopped, restarts, nil)
			log.Info().Msg("task stopped")
			return
		}
		if errcode.IsFatal(err) {
			s.setStatus(name, types.TaskFailed, restarts, err)
			log.Error().Err(err).Msg("task failed")
			return
		}
		// A long healthy run starts the backoff sequence afresh.
		if time.Since(started) > s.opts.MaxBackoff {
			backoff = backoffSeq(s.opts.MinBackoff, s.opts.MaxBackoff)
		}
		delay := backoff()
		restarts++
		s.setStatus(name, types.TaskRestarting, restarts, err)
		log.Warn().Err(err).Dur("retry_in", delay).Int("restarts", restarts).Msg("task error")
		if !sleep(ctx, delay) {
			s.setStatus(name, types.TaskStopped, restarts, nil)
			return
		}
	}
}

func runOnce(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{v: r}
		}
	}()
	return fn(ctx)
}

type panicError struct{ v any }

func (p *panicError) Error() string {
	switch x := p.v.(type) {
	case string:
		return "panic: " + x
	case error:
		return "panic: " + x.Error()
	}
	return "panic"
}

func (s *Supervisor) setStatus(name string, st types.TaskState, restarts int, err error) {
	ts := types.TaskStatus{State: st, Restarts: restarts, TS: timex.NowMs()}
	if err != nil {
		ts.Error = err.Error()
	}
	s.mu.Lock()
	s.status[name] = ts
	s.mu.Unlock()
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicTask(name), ts, true))
	}
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
