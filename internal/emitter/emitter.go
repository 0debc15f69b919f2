package emitter

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Module is a collaborator (plugin or service) contributing listeners and
// recurring tasks.
type Module interface {
	Name() string
	Register() Registration
}

// Registration is everything a module contributes. Funcs are wrapped into
// minimal listeners.
type Registration struct {
	CronJobs  []*CronJob
	Listeners map[string][]*Listener
	Funcs     map[string]HandlerFunc
}

// Collaborators lists the modules handed to Initialize. Handler errors from
// Services are fatal; errors from Plugins are reported and swallowed.
type Collaborators struct {
	Plugins  []Module
	Services []Module
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithBusyStore replaces the in-memory busy store.
func WithBusyStore(store BusyStore) Option {
	return func(e *Emitter) { e.busy = store }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Emitter) { e.metrics = m }
}

// WithAdminMention sets who users are told to contact in error replies.
func WithAdminMention(mention string) Option {
	return func(e *Emitter) { e.adminMention = mention }
}

// WithFatalHandler receives service failures raised outside of Emit, i.e.
// from scheduled runs. The default forwards them to Fatal().
func WithFatalHandler(fn func(error)) Option {
	return func(e *Emitter) { e.onFatal = fn }
}

// WithLocation sets the time zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Emitter) { e.location = loc }
}

// Emitter resolves inbound events and interactions to their listener chains.
// It is created once at startup; the registry is read-only after Initialize.
type Emitter struct {
	logger       *zap.Logger
	busy         BusyStore
	metrics      *Metrics
	adminMention string
	onFatal      func(error)
	fatalCh      chan error
	location     *time.Location

	mu          sync.RWMutex
	registry    map[string][]*Listener
	initialized bool

	cron        *cron.Cron
	cronMu      sync.Mutex
	cronEntries map[string][]cron.EntryID
}

func New(logger *zap.Logger, opts ...Option) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emitter{
		logger:      logger,
		busy:        NewMemoryBusyStore(0),
		fatalCh:     make(chan error, 1),
		location:    time.Local,
		registry:    make(map[string][]*Listener),
		cronEntries: make(map[string][]cron.EntryID),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.onFatal == nil {
		e.onFatal = e.forwardFatal
	}
	e.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(e.location),
		cron.WithLogger(cronLogger{e.logger.Sugar()}),
	)
	return e
}

// Initialize registers every collaborator, sorts each chain by run order and
// starts the cron runner. Configuration errors from all modules are joined
// into the returned error.
func (e *Emitter) Initialize(_ context.Context, c Collaborators) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return fmt.Errorf("emitter already initialized")
	}

	var errs []error
	for _, m := range c.Plugins {
		errs = append(errs, e.registerModule(m, false)...)
	}
	for _, m := range c.Services {
		errs = append(errs, e.registerModule(m, true)...)
	}
	if err := stderrors.Join(errs...); err != nil {
		return err
	}

	for key, listeners := range e.registry {
		sort.SliceStable(listeners, func(i, j int) bool {
			return listeners[i].runOrder < listeners[j].runOrder
		})
		e.registry[key] = listeners
	}

	e.initialized = true
	e.cron.Start()

	e.logger.Info("Emitter initialized",
		zap.Int("plugins", len(c.Plugins)),
		zap.Int("services", len(c.Services)),
		zap.Int("keys", len(e.registry)),
	)
	return nil
}

func (e *Emitter) registerModule(m Module, service bool) []error {
	if m == nil {
		return nil
	}
	name := m.Name()
	reg := m.Register()

	var errs []error
	add := func(key string, l *Listener) {
		if l == nil {
			errs = append(errs, fmt.Errorf("module %s: nil listener for %q", name, key))
			return
		}
		if err := l.bind(key, name, service); err != nil {
			errs = append(errs, err)
			return
		}
		e.registry[key] = append(e.registry[key], l)
	}

	for _, job := range reg.CronJobs {
		if job == nil {
			continue
		}
		if err := job.validate(); err != nil {
			errs = append(errs, fmt.Errorf("module %s: cron job %s: %w", name, job.name, err))
			continue
		}
		job.module = name
		add(EventReady, e.cronListener(job, service))
	}

	for _, key := range sortedKeys(reg.Listeners) {
		for _, l := range reg.Listeners[key] {
			add(key, l)
		}
	}
	for _, key := range sortedKeys(reg.Funcs) {
		add(key, Handle(reg.Funcs[key]))
	}

	e.logger.Debug("Module registered",
		zap.String("module", name),
		zap.Bool("service", service),
		zap.Int("cron_jobs", len(reg.CronJobs)),
	)
	return errs
}

func (e *Emitter) cronListener(job *CronJob, service bool) *Listener {
	return NewListener().
		SetEnabled(job.enabled).
		SetRunOrder(job.runOrder).
		SetFunction(func(ctx context.Context, _ *Params) error {
			return e.ScheduleCronJob(ctx, job, service)
		})
}

// Listeners returns a copy of the sorted chain registered under key.
func (e *Emitter) Listeners(key string) []*Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.registry[key])
}

// Keys returns every registered key in lexical order.
func (e *Emitter) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.registry)
}

// Deployments collects the command payloads of every deployed listener.
func (e *Emitter) Deployments() []*discordgo.ApplicationCommand {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var cmds []*discordgo.ApplicationCommand
	for _, key := range sortedKeys(e.registry) {
		for _, l := range e.registry[key] {
			if cmd := l.Deployment(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}
	return cmds
}

// IsBusy reports whether the interaction is already being handled. Store
// failures are logged and read as not busy.
func (e *Emitter) IsBusy(ctx context.Context, i Interaction) bool {
	key := busyKeyOf(i)
	busy, err := e.busy.IsBusy(ctx, key)
	if err != nil {
		e.logger.Warn("Failed to read busy state", zap.String("busy_key", key), zap.Error(err))
		return false
	}
	return busy
}

// SetBusy marks or clears the interaction as in flight. Every true must be
// paired with a false; prefer WithBusy.
func (e *Emitter) SetBusy(ctx context.Context, i Interaction, busy bool) error {
	key := busyKeyOf(i)
	if err := e.busy.SetBusy(ctx, key, busy); err != nil {
		e.logger.Warn("Failed to write busy state",
			zap.String("busy_key", key),
			zap.Bool("busy", busy),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// WithBusy runs fn with the interaction marked busy and always releases it.
func (e *Emitter) WithBusy(ctx context.Context, i Interaction, fn func() error) error {
	if err := e.SetBusy(ctx, i, true); err != nil {
		return err
	}
	defer func() {
		_ = e.SetBusy(context.WithoutCancel(ctx), i, false)
	}()
	return fn()
}

// Fatal delivers service failures raised by scheduled runs.
func (e *Emitter) Fatal() <-chan error {
	return e.fatalCh
}

func (e *Emitter) forwardFatal(err error) {
	select {
	case e.fatalCh <- err:
	default:
		e.logger.Error("Dropped fatal service error", zap.Error(err))
	}
}

// Close stops the cron runner and waits for running jobs until ctx expires.
func (e *Emitter) Close(ctx context.Context) error {
	stopped := e.cron.Stop()
	select {
	case <-stopped.Done():
		e.logger.Info("Emitter cron runner stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Timeout waiting for cron jobs to finish")
		return ctx.Err()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
