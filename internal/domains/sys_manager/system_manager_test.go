package sys_manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/cache"
)

type countTask struct {
	runs atomic.Int32
	err  error
}

func (c *countTask) Execute(context.Context) error {
	c.runs.Add(1)
	return c.err
}
func (c *countTask) GetName() string            { return "count" }
func (c *countTask) GetInterval() time.Duration { return 2 * time.Millisecond }

func TestManagerRunsTasksUntilStopped(t *testing.T) {
	sm := NewSystemManager(nil)
	ok := &countTask{}
	failing := &countTask{err: errors.New("nope")}
	sm.RegisterTask(ok)
	sm.RegisterTask(failing)
	assert.Equal(t, 2, sm.GetTaskCount())

	require.NoError(t, sm.Start())
	assert.Error(t, sm.Start())
	require.Eventually(t, func() bool {
		return ok.runs.Load() >= 2 && failing.runs.Load() >= 2
	}, time.Second, time.Millisecond)

	require.NoError(t, sm.Stop())
	assert.False(t, sm.IsRunning())
	n := ok.runs.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, ok.runs.Load())
	require.NoError(t, sm.Stop())
}

type reaper struct{ idle time.Duration }

func (r *reaper) Reap(idle time.Duration) int {
	r.idle = idle
	return 1
}

func TestHousekeepingTasks(t *testing.T) {
	now := time.Now()
	c := cache.NewTTL[string](time.Minute, cache.WithClock(func() time.Time { return now }))
	c.Set("benzene", "C6H6")
	now = now.Add(2 * time.Minute)

	purge := NewCachePurgeTask("reference", c, 0, nil)
	assert.Equal(t, 10*time.Minute, purge.GetInterval())
	require.NoError(t, purge.Execute(context.Background()))
	assert.Zero(t, c.Len())

	r := &reaper{}
	reap := NewVoiceReapTask(r, SystemManagerConfig{}, nil)
	require.NoError(t, reap.Execute(context.Background()))
	assert.Equal(t, 15*time.Minute, r.idle)
	assert.Equal(t, time.Minute, reap.GetInterval())
}

type panicTask struct{ runs atomic.Int32 }

func (p *panicTask) Execute(context.Context) error {
	p.runs.Add(1)
	panic("boom")
}
func (p *panicTask) GetName() string            { return "panic" }
func (p *panicTask) GetInterval() time.Duration { return 2 * time.Millisecond }

func TestPanickingTaskKeepsSchedule(t *testing.T) {
	sm := NewSystemManager(nil)
	p := &panicTask{}
	sm.RegisterTask(p)
	require.NoError(t, sm.Start())
	defer sm.Stop()

	require.Eventually(t, func() bool { return p.runs.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestLateRegistrationAndNoRestart(t *testing.T) {
	sm := NewSystemManager(nil)
	require.NoError(t, sm.Start())

	late := &countTask{}
	sm.RegisterTask(late)
	require.Eventually(t, func() bool { return late.runs.Load() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, sm.Stop())
	assert.ErrorIs(t, sm.Start(), ErrStopped)
}
