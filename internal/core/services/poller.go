package services

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Poller runs periodic refresh jobs for mounted dashboards on one cron
// scheduler. Jobs are keyed so a remount replaces the previous job.
type Poller struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	log      *zap.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// NewPoller creates a poller firing every job on spec (standard cron or
// descriptors such as "@every 60s")
func NewPoller(spec string, log *zap.Logger) (*Poller, error) {
	if log == nil {
		log = zap.NewNop()
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	cl := cronLogger{log.Named("poller").Sugar()}
	return &Poller{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		schedule: schedule,
		spec:     spec,
		log:      log.Named("poller"),
		jobs:     make(map[string]cron.EntryID),
	}, nil
}

// Start starts the scheduler in its own goroutine
func (p *Poller) Start() {
	p.cron.Start()
	p.log.Info("🚀 poller started", zap.String("schedule", p.spec))
}

// Stop stops the scheduler and waits for running jobs
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
	p.log.Info("🛑 poller stopped")
}

// Mount schedules job under key, replacing any job already mounted there
func (p *Poller) Mount(key string, job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.jobs[key]; ok {
		p.cron.Remove(id)
	}
	p.jobs[key] = p.cron.Schedule(p.schedule, cron.FuncJob(job))
}

// Every schedules job on its own spec; used for housekeeping
func (p *Poller) Every(key, spec string, job func()) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.jobs[key]; ok {
		p.cron.Remove(id)
	}
	p.jobs[key] = p.cron.Schedule(schedule, cron.FuncJob(job))
	return nil
}

// Unmount removes the job under key; unknown keys are ignored
func (p *Poller) Unmount(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.jobs[key]; ok {
		p.cron.Remove(id)
		delete(p.jobs, key)
	}
}

// Mounted reports whether a job is scheduled under key
func (p *Poller) Mounted(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.jobs[key]
	return ok
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
