package emitter

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
)

const (
	defaultCronExpression = "* * * * *"
	defaultCronRunOrder   = -90
)

// CronFunc is the body of a recurring task.
type CronFunc func(ctx context.Context) error

// CronJob describes a recurring task. At registration it becomes a Listener
// on EventReady whose function hands the job to the scheduler.
type CronJob struct {
	name       string
	module     string
	expression string
	date       time.Time
	fn         CronFunc
	enabled    Flag
	triggered  Flag
	runOrder   int

	err error
}

// NewCronJob returns an enabled job running every minute.
func NewCronJob() *CronJob {
	return &CronJob{
		expression: defaultCronExpression,
		enabled:    Bool(true),
		triggered:  Bool(false),
		runOrder:   defaultCronRunOrder,
	}
}

func (j *CronJob) Name() string       { return j.name }
func (j *CronJob) Expression() string { return j.expression }
func (j *CronJob) Date() time.Time    { return j.date }
func (j *CronJob) Enabled() Flag      { return j.enabled }
func (j *CronJob) Triggered() Flag    { return j.triggered }
func (j *CronJob) RunOrder() int      { return j.runOrder }
func (j *CronJob) Err() error         { return j.err }

func (j *CronJob) SetExpression(expression string) *CronJob {
	if _, err := cronParser.Parse(expression); err != nil {
		return j.fail(apperrors.NewConfigError(fmt.Sprintf("invalid cron expression: %v", err), "expression", expression))
	}
	j.expression = expression
	return j
}

// SetDate makes the job a one-shot that runs at the given instant instead of
// following the expression.
func (j *CronJob) SetDate(at time.Time) *CronJob {
	if at.IsZero() {
		return j.fail(apperrors.NewConfigError("date must not be zero", "date", at))
	}
	j.date = at
	return j
}

func (j *CronJob) SetFunction(fn CronFunc) *CronJob {
	if fn == nil {
		return j.fail(apperrors.NewConfigError("function must not be nil", "func", nil))
	}
	j.fn = fn
	if j.name == "" {
		j.name = funcName(fn)
	}
	return j
}

// SetName overrides the name StopCronJobs matches against.
func (j *CronJob) SetName(name string) *CronJob {
	if strings.TrimSpace(name) == "" {
		return j.fail(apperrors.NewConfigError("name must not be blank", "name", name))
	}
	j.name = name
	return j
}

func (j *CronJob) SetEnabled(flag Flag) *CronJob {
	if !flag.valid() {
		return j.fail(apperrors.NewConfigError("enabled predicate must not be nil", "isEnabled", flag.String()))
	}
	j.enabled = flag
	return j
}

func (j *CronJob) SetTriggered(flag Flag) *CronJob {
	if !flag.valid() {
		return j.fail(apperrors.NewConfigError("triggered predicate must not be nil", "isTriggered", flag.String()))
	}
	j.triggered = flag
	return j
}

func (j *CronJob) SetRunOrder(order int) *CronJob {
	j.runOrder = order
	return j
}

func (j *CronJob) fail(err error) *CronJob {
	if j.err == nil {
		j.err = err
	}
	return j
}

func (j *CronJob) validate() error {
	if j.err != nil {
		return j.err
	}
	if j.fn == nil {
		return apperrors.NewConfigError("function is required", "func", nil)
	}
	return nil
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	return runtime.FuncForPC(v.Pointer()).Name()
}
