package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/calendar"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/google"
	"github.com/teemow/availsync/internal/instrumentation"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/store"
)

// CalendarClient is the calendar API surface used by serve and the MCP tools.
// *calendar.Client implements it.
type CalendarClient interface {
	availability.EventStore
	ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error)
}

// ClientFactory creates a calendar client for an account.
type ClientFactory func(ctx context.Context, account string) (CalendarClient, error)

// CalendarClientFactory returns a ClientFactory that builds API clients from
// cached OAuth tokens.
func CalendarClientFactory(provider google.TokenProvider, metrics *instrumentation.Metrics) ClientFactory {
	return func(ctx context.Context, account string) (CalendarClient, error) {
		if !provider.HasToken(account) {
			return nil, fmt.Errorf("%w for account %q: run 'availsync auth --account %s'", google.ErrNoToken, account, account)
		}
		return calendar.NewClientForAccountWithProvider(ctx, account, provider, calendar.WithMetrics(metrics))
	}
}

// ServerContext holds the state shared by the long-running commands: the
// effective config, one calendar client per account and the run history.
type ServerContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	newClient ClientFactory
	clients   map[string]CalendarClient
	cfg       *config.Config
	metrics   *instrumentation.Metrics
	history   *store.Store
	logger    logging.Logger
	yolo      bool
	mu        sync.RWMutex
	shutdown  bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithMetrics sets the metrics recorder passed to syncers.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithHistory records every run in st.
func WithHistory(st *store.Store) ServerContextOption {
	return func(sc *ServerContext) { sc.history = st }
}

// WithLogger sets the logger passed to syncers.
func WithLogger(l logging.Logger) ServerContextOption {
	return func(sc *ServerContext) {
		if l != nil {
			sc.logger = l
		}
	}
}

// WithYolo allows MCP tools to modify calendars.
func WithYolo(yolo bool) ServerContextOption {
	return func(sc *ServerContext) { sc.yolo = yolo }
}

// NewServerContext creates a server context for cfg.
func NewServerContext(ctx context.Context, cfg *config.Config, newClient ClientFactory, opts ...ServerContextOption) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if newClient == nil {
		return nil, fmt.Errorf("client factory is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		newClient: newClient,
		clients:   make(map[string]CalendarClient),
		cfg:       cfg,
		logger:    logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns a copy of the effective config.
func (sc *ServerContext) Config() config.Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return *sc.cfg
}

// SetConfig replaces the effective config, e.g. after a reload.
func (sc *ServerContext) SetConfig(cfg *config.Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

// ClientForAccount returns the calendar client for account, creating and
// caching it on first use.
func (sc *ServerContext) ClientForAccount(account string) (CalendarClient, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.clients[account]; ok {
		return client, nil
	}

	client, err := sc.newClient(sc.ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client for account %s: %w", account, err)
	}
	sc.clients[account] = client
	return client, nil
}

// SetClientForAccount sets the calendar client for a specific account.
func (sc *ServerContext) SetClientForAccount(account string, client CalendarClient) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clients[account] = client
}

// Syncer returns a syncer writing through the client of account.
func (sc *ServerContext) Syncer(account string, opts ...availability.SyncerOption) (*availability.Syncer, error) {
	client, err := sc.ClientForAccount(account)
	if err != nil {
		return nil, err
	}

	base := []availability.SyncerOption{
		availability.WithLogger(logging.ForAccount(sc.logger, account)),
		availability.WithMetrics(sc.metrics),
	}
	if sc.history != nil {
		base = append(base, availability.WithRecorder(sc.history.Recorder()))
	}
	return availability.NewSyncer(client, append(base, opts...)...), nil
}

// Sync runs one sync with the effective config. It is the SyncFunc of the
// serve Runner.
func (sc *ServerContext) Sync(ctx context.Context) (*availability.Report, error) {
	cfg := sc.Config()
	if err := cfg.ValidateForSync(); err != nil {
		return nil, err
	}

	syncer, err := sc.Syncer(cfg.Account)
	if err != nil {
		return nil, err
	}
	return syncer.Sync(ctx, availability.NewWindow(syncer.Now(), cfg.Days), SyncOptions(&cfg))
}

// SyncOptions converts the config fields to sync options.
func SyncOptions(cfg *config.Config) availability.Options {
	return availability.Options{
		Source:           cfg.SourceCalendar,
		Target:           cfg.TargetCalendar,
		Summary:          cfg.Summary,
		Mode:             availability.Mode(cfg.Mode),
		MergeOverlapping: cfg.MergeOverlapping,
		SkipDeclined:     cfg.SkipDeclined,
		ManagedOnly:      cfg.ManagedOnly,
	}
}

// Interval returns the sync interval of the effective config.
func (sc *ServerContext) Interval() (time.Duration, error) {
	cfg := sc.Config()
	return cfg.IntervalDuration()
}

// History returns the run history, or nil when it is disabled.
func (sc *ServerContext) History() *store.Store {
	return sc.history
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Yolo reports whether tools may modify calendars.
func (sc *ServerContext) Yolo() bool {
	return sc.yolo
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
