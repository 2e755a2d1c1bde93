package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"pricewatch/models"

	"github.com/robfig/cron/v3"
)

// PriceChecker runs the recheck pipeline on a cron schedule.
type PriceChecker struct {
	cron       *cron.Cron
	pipeline   *Pipeline
	schedule   string
	runOnStart bool

	// cancelled by Stop so an in-flight scheduled batch winds down
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPriceChecker schedules pipeline on a six-field cron expression.
// With runOnStart a batch also runs as soon as Start is called.
func NewPriceChecker(pipeline *Pipeline, schedule string, runOnStart bool) *PriceChecker {
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &PriceChecker{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		pipeline:   pipeline,
		schedule:   schedule,
		runOnStart: runOnStart,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start schedules the batch and starts the cron loop.
func (pc *PriceChecker) Start() error {
	if _, err := pc.cron.AddFunc(pc.schedule, pc.checkAllPrices); err != nil {
		return fmt.Errorf("failed to schedule price checker %q: %w", pc.schedule, err)
	}

	if pc.runOnStart {
		go pc.checkAllPrices()
	}

	pc.cron.Start()
	slog.Info("Price checker scheduled", "schedule", pc.schedule, "run_on_start", pc.runOnStart)
	return nil
}

// Stop halts scheduling, cancels a running batch and waits for it to return.
func (pc *PriceChecker) Stop() {
	pc.cancel()
	<-pc.cron.Stop().Done()
	slog.Info("Price checker stopped")
}

// RunNow runs one batch synchronously. It waits for any batch already in progress.
func (pc *PriceChecker) RunNow(ctx context.Context) (models.BatchSummary, error) {
	return pc.pipeline.Run(ctx)
}

// LastSummary reports the most recent batch outcome.
func (pc *PriceChecker) LastSummary() (models.BatchSummary, bool) {
	return pc.pipeline.LastSummary()
}

func (pc *PriceChecker) checkAllPrices() {
	if _, err := pc.pipeline.Run(pc.ctx); err != nil {
		slog.Error("Scheduled price check failed", "error", err)
	}
}

// cronLogger forwards cron's logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
