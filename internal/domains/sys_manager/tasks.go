package sys_manager

import (
	"context"
	"time"

	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

// Purger is a cache that can drop expired entries; cache.TTL satisfies it.
type Purger interface {
	Purge() int
}

// CachePurgeTask sweeps expired entries that were never read again.
type CachePurgeTask struct {
	name     string
	cache    Purger
	interval time.Duration
	logger   *Logger.Logger
}

func NewCachePurgeTask(name string, c Purger, interval time.Duration, logger *Logger.Logger) *CachePurgeTask {
	if interval <= 0 {
		interval = DefaultSystemManagerConfig().CachePurgeInterval
	}
	return &CachePurgeTask{name: name, cache: c, interval: interval, logger: Logger.OrNop(logger)}
}

func (t *CachePurgeTask) Execute(context.Context) error {
	if n := t.cache.Purge(); n > 0 {
		t.logger.Debugf("%s: purged %d expired entries", t.name, n)
	}
	return nil
}

func (t *CachePurgeTask) GetName() string { return "CachePurge(" + t.name + ")" }

func (t *CachePurgeTask) GetInterval() time.Duration { return t.interval }

// Reaper closes per-user resources idle for longer than the given duration;
// voice.Service satisfies it.
type Reaper interface {
	Reap(idle time.Duration) int
}

type VoiceReapTask struct {
	voice    Reaper
	idle     time.Duration
	interval time.Duration
	logger   *Logger.Logger
}

func NewVoiceReapTask(r Reaper, cfg SystemManagerConfig, logger *Logger.Logger) *VoiceReapTask {
	def := DefaultSystemManagerConfig()
	if cfg.VoiceIdle <= 0 {
		cfg.VoiceIdle = def.VoiceIdle
	}
	if cfg.VoiceReapInterval <= 0 {
		cfg.VoiceReapInterval = def.VoiceReapInterval
	}
	return &VoiceReapTask{voice: r, idle: cfg.VoiceIdle, interval: cfg.VoiceReapInterval, logger: Logger.OrNop(logger)}
}

func (t *VoiceReapTask) Execute(context.Context) error {
	if n := t.voice.Reap(t.idle); n > 0 {
		t.logger.Infof("closed %d idle voice sessions", n)
	}
	return nil
}

func (t *VoiceReapTask) GetName() string { return "VoiceReap" }

func (t *VoiceReapTask) GetInterval() time.Duration { return t.interval }
