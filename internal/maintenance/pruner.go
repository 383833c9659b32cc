// Package maintenance runs retention sweeps over suggestion entries and
// search events, on a cron schedule or on demand.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper deletes expired suggestions and events. Implemented by the search
// service.
type Sweeper interface {
	Prune(ctx context.Context) (suggestions, events int64, err error)
}

// Result of one sweep.
type Result struct {
	Suggestions int64         `json:"suggestions"`
	Events      int64         `json:"events"`
	Duration    time.Duration `json:"duration"`
}

// Pruner wraps robfig/cron around a Sweeper.
type Pruner struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewPruner creates a Pruner for the cron spec ("@daily", "0 3 * * *").
// An empty spec disables scheduling; RunOnce still works.
func NewPruner(sweeper Sweeper, spec string, logger *logrus.Logger) *Pruner {
	cronLogger := cron.PrintfLogger(logger)
	return &Pruner{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper: sweeper,
		spec:    spec,
		timeout: 10 * time.Minute,
		logger:  logger,
	}
}

// RunOnce performs a single sweep.
func (p *Pruner) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	suggestions, events, err := p.sweeper.Prune(ctx)
	result := Result{Suggestions: suggestions, Events: events, Duration: time.Since(start)}
	if err != nil {
		return result, fmt.Errorf("retention sweep failed: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"suggestions": suggestions,
		"events":      events,
		"duration":    result.Duration,
	}).Info("Retention sweep completed")
	return result, nil
}

// Start registers the sweep and starts the scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	if p.spec == "" {
		p.logger.Info("Retention sweep schedule not set, pruning runs only on demand")
		return nil
	}

	_, err := p.cron.AddFunc(p.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if _, err := p.RunOnce(runCtx); err != nil {
			p.logger.WithError(err).Error("Scheduled retention sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	p.cron.Start()
	p.logger.WithField("spec", p.spec).Info("Retention sweep scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running sweep.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}
