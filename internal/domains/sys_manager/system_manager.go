package sys_manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

var (
	ErrRunning = errors.New("system manager is already running")
	ErrStopped = errors.New("system manager was stopped")
)

const defaultTaskTimeout = 30 * time.Second

// SystemTask is one periodic housekeeping job.
type SystemTask interface {
	Execute(ctx context.Context) error
	GetName() string
	GetInterval() time.Duration
}

type managerState int

const (
	stateIdle managerState = iota
	stateRunning
	stateStopped
)

// SystemManager runs each task on its own ticker. A failing or panicking
// pass is logged and the task keeps its schedule.
type SystemManager struct {
	logger  *Logger.Logger
	timeout time.Duration

	mu     sync.Mutex
	tasks  []SystemTask
	state  managerState
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func NewSystemManager(logger *Logger.Logger) *SystemManager {
	return &SystemManager{
		logger:  Logger.OrNop(logger).Named("system"),
		timeout: defaultTaskTimeout,
	}
}

// RegisterTask adds a task. Tasks registered while running start at once.
func (sm *SystemManager) RegisterTask(task SystemTask) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.tasks = append(sm.tasks, task)
	sm.logger.Infof("registered task %s (every %s)", task.GetName(), task.GetInterval())
	if sm.state == stateRunning {
		sm.launch(task)
	}
}

func (sm *SystemManager) Start() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case stateRunning:
		return ErrRunning
	case stateStopped:
		return ErrStopped
	}

	sm.ctx, sm.cancel = context.WithCancel(context.Background())
	sm.state = stateRunning
	sm.logger.Infof("starting with %d tasks", len(sm.tasks))
	for _, task := range sm.tasks {
		sm.launch(task)
	}
	return nil
}

// Stop cancels every task and waits for in-flight passes. It cannot be
// restarted.
func (sm *SystemManager) Stop() error {
	sm.mu.Lock()
	if sm.state != stateRunning {
		sm.state = stateStopped
		sm.mu.Unlock()
		return nil
	}
	sm.state = stateStopped
	sm.cancel()
	sm.mu.Unlock()

	sm.wg.Wait()
	sm.logger.Infof("stopped")
	return nil
}

func (sm *SystemManager) IsRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state == stateRunning
}

func (sm *SystemManager) GetTaskCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.tasks)
}

// launch must be called with mu held.
func (sm *SystemManager) launch(task SystemTask) {
	ctx := sm.ctx
	sm.wg.Go(func() { sm.loop(ctx, task) })
}

func (sm *SystemManager) loop(ctx context.Context, task SystemTask) {
	interval := task.GetInterval()
	if interval <= 0 {
		sm.logger.Warnf("task %s has no interval, not scheduling it", task.GetName())
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.runOnce(ctx, task)
		}
	}
}

// runOnce executes one pass under the task timeout.
func (sm *SystemManager) runOnce(ctx context.Context, task SystemTask) {
	name := task.GetName()
	start := time.Now()

	passCtx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	var (
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() { err = task.Execute(passCtx) })
	if r := catcher.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		sm.logger.Errorf("task %s failed after %s: %v", name, time.Since(start), err)
		return
	}
	sm.logger.Debugf("task %s completed in %s", name, time.Since(start))
}

// SystemManagerConfig holds the housekeeping intervals.
type SystemManagerConfig struct {
	CachePurgeInterval time.Duration `json:"cache_purge_interval" mapstructure:"cache_purge_interval"`
	VoiceReapInterval  time.Duration `json:"voice_reap_interval" mapstructure:"voice_reap_interval"`
	VoiceIdle          time.Duration `json:"voice_idle" mapstructure:"voice_idle"`
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		CachePurgeInterval: 10 * time.Minute,
		VoiceReapInterval:  time.Minute,
		VoiceIdle:          15 * time.Minute,
	}
}
