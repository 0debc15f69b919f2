package emitter

import (
	"context"
	"time"

	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// cronParser accepts 5-field expressions, an optional leading seconds field
// and descriptors such as "@hourly" or "@every 30s".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleCronJob starts the job's timer. A disabled job stays unscheduled; a
// triggered job runs once immediately before its schedule starts. Service
// failures during the immediate run are returned; failures of later runs go
// to the fatal handler.
func (e *Emitter) ScheduleCronJob(ctx context.Context, job *CronJob, service bool) error {
	if err := job.validate(); err != nil {
		return err
	}
	logger := e.logger.With(zap.String("job", job.name), zap.Bool("service", service))

	enabled, err := job.enabled.Resolve(ctx)
	if err != nil {
		return apperrors.NewGateError("isEnabled", err)
	}
	if !enabled {
		logger.Info("Cron job disabled, not scheduling")
		return nil
	}

	triggered, err := job.triggered.Resolve(ctx)
	if err != nil {
		return apperrors.NewGateError("isTriggered", err)
	}
	if triggered {
		logger.Info("Cron job triggered, running immediately")
		if err := e.runCronJob(ctx, logger, job, service); err != nil {
			return err
		}
	}

	var schedule cron.Schedule
	oneShot := !job.date.IsZero()
	if oneShot {
		if !job.date.After(time.Now()) {
			logger.Warn("Cron job date already passed, not scheduling", zap.Time("date", job.date))
			return nil
		}
		schedule = onceSchedule{at: job.date}
	} else {
		schedule, err = cronParser.Parse(job.expression)
		if err != nil {
			return apperrors.NewConfigError(err.Error(), "expression", job.expression)
		}
	}

	e.cronMu.Lock()
	defer e.cronMu.Unlock()

	// written under cronMu; the job reads it under the same lock
	var entryID cron.EntryID
	entryID = e.cron.Schedule(schedule, cron.FuncJob(func() {
		runCtx := context.Background()
		if err := e.runCronJob(runCtx, logger, job, service); err != nil {
			e.onFatal(err)
		}
		if oneShot {
			e.removeCronEntry(job.name, &entryID)
		}
	}))
	e.cronEntries[job.name] = append(e.cronEntries[job.name], entryID)

	logger.Info("Cron job scheduled",
		zap.String("expression", job.expression),
		zap.Time("next", schedule.Next(time.Now().In(e.location))),
	)
	return nil
}

// StopCronJobs stops every running timer registered under name and returns
// how many were stopped.
func (e *Emitter) StopCronJobs(name string) int {
	e.cronMu.Lock()
	defer e.cronMu.Unlock()

	ids := e.cronEntries[name]
	for _, id := range ids {
		e.cron.Remove(id)
	}
	delete(e.cronEntries, name)

	if len(ids) > 0 {
		e.logger.Info("Cron jobs stopped", zap.String("job", name), zap.Int("count", len(ids)))
	}
	return len(ids)
}

// StopCronJobsFunc stops the timers of jobs named after fn.
func (e *Emitter) StopCronJobsFunc(fn CronFunc) int {
	return e.StopCronJobs(funcName(fn))
}

// RunningCronJobs reports how many timers are registered under name.
func (e *Emitter) RunningCronJobs(name string) int {
	e.cronMu.Lock()
	defer e.cronMu.Unlock()
	return len(e.cronEntries[name])
}

func (e *Emitter) removeCronEntry(name string, entryID *cron.EntryID) {
	e.cronMu.Lock()
	defer e.cronMu.Unlock()

	id := *entryID
	e.cron.Remove(id)
	ids := e.cronEntries[name]
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(e.cronEntries, name)
	} else {
		e.cronEntries[name] = ids
	}
}

func (e *Emitter) runCronJob(ctx context.Context, logger *zap.Logger, job *CronJob, service bool) error {
	var err error
	if recovered := panics.Try(func() { err = job.fn(ctx) }); recovered != nil {
		err = recovered.AsError()
	}
	e.metrics.observeCron(job.name, err)

	if err == nil {
		return nil
	}
	if service {
		logger.Error("Service cron job failed", zap.Error(err))
		return apperrors.NewHandlerError(job.name, job.module, true, err)
	}
	logger.Error("Plugin cron job failed", zap.Error(err))
	return nil
}

// onceSchedule fires a single time at a fixed instant.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// cronLogger routes the cron runner's own logging into zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
