// Package tutormesh assembles a complete tutoring service from a
// config.Config: the model, the content and progress stores, the lesson
// graph, the session runner and the HTTP/WebSocket server. Most
// applications only need New and then either Handler (to serve clients)
// or Start (to drive a session in-process).
//
// Every collaborator can be overridden through Options; unset ones are
// built from the configuration.
package tutormesh

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/Titouaaaan/tutormesh/agent"
	"github.com/Titouaaaan/tutormesh/api"
	"github.com/Titouaaaan/tutormesh/config"
	"github.com/Titouaaaan/tutormesh/content"
	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/engine"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/metrics"
	"github.com/Titouaaaan/tutormesh/model"
	"github.com/Titouaaaan/tutormesh/model/anthropic"
	"github.com/Titouaaaan/tutormesh/model/openai"
	"github.com/Titouaaaan/tutormesh/progress"
	"github.com/Titouaaaan/tutormesh/progress/natspub"
	"github.com/Titouaaaan/tutormesh/progress/redis"
	"github.com/Titouaaaan/tutormesh/progress/sqlstore"
	"github.com/Titouaaaan/tutormesh/runner"
	"github.com/Titouaaaan/tutormesh/session"
	"github.com/Titouaaaan/tutormesh/tool"
	"github.com/Titouaaaan/tutormesh/workqueue"
)

// Options overrides collaborators otherwise built from the configuration.
type Options struct {
	Logger logging.Logger

	// Model serves the supervisor, the workers and the partition
	// classifier. Overrides model.provider.
	Model model.Model
	// WorkerModels overrides the model per role, e.g. scripted mocks.
	WorkerModels map[core.Role]model.Model
	// Classifier overrides the partition classifier.
	Classifier workqueue.Classifier

	SessionStore  *session.InMemoryStore
	ContentStore  core.ContentStore
	ProgressStore core.ProgressStore
	Metrics       *metrics.Collector

	// Callbacks are registered on the engine.
	Callbacks []engine.Callback
}

// TutorMesh is the assembled service.
type TutorMesh struct {
	cfg     config.Config
	logger  logging.Logger
	runner  *runner.Runner
	server  *api.Server
	metrics *metrics.Collector
	closers []func() error
}

// New builds the service. Call Close to release connections.
//
// Logging Fields:
//
//	provider: model provider
//	progress: progress backend
func New(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*TutorMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	tm := &TutorMesh{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = tm.Close()
		}
	}()

	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(logging.Config{Backend: cfg.Logging.Backend, Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		logger = l
		if z, isZap := l.(*logging.ZapAdapter); isZap {
			tm.closers = append(tm.closers, func() error { _ = z.Sync(); return nil })
		}
	}
	tm.logger = logger

	m := opts.Model
	if m == nil {
		m = newModel(cfg.Model, cfg.Engine.CompletionSentinel)
	}
	m = model.NewRateLimited(m, cfg.Model.RatePerSecond, cfg.Model.Burst)

	contentStore := opts.ContentStore
	if contentStore == nil {
		cs, err := tm.newContentStore(cfg.Content)
		if err != nil {
			return nil, err
		}
		contentStore = cs
	}

	progressStore := opts.ProgressStore
	if progressStore == nil {
		ps, err := tm.newProgressStore(ctx, cfg.Progress)
		if err != nil {
			return nil, err
		}
		progressStore = ps
	}

	sessions := opts.SessionStore
	if sessions == nil {
		sessions = session.NewInMemoryStore()
	}

	tm.metrics = opts.Metrics
	if tm.metrics == nil && cfg.Metrics.Enabled {
		tm.metrics = metrics.NewCollector(cfg.Metrics.Namespace)
	}
	var observer core.Observer = core.NoOpObserver{}
	if tm.metrics != nil {
		observer = tm.metrics
	}

	classifier := opts.Classifier
	if classifier == nil {
		if cfg.Model.Provider == "mock" && opts.Model == nil {
			classifier = workqueue.SectionClassifier{}
		} else {
			classifier = workqueue.NewModelClassifier(m)
		}
	}

	e, err := tm.newEngine(cfg, m, opts, workqueue.NewPartitioner(classifier, logger))
	if err != nil {
		return nil, err
	}

	tm.runner = runner.New(e, func(o *runner.Options) {
		o.SessionStore = sessions
		o.ProgressStore = progressStore
		o.ContentStore = contentStore
		o.Observer = observer
		o.MaxModelCalls = cfg.Model.MaxCalls
		o.MaxHistoryMessages = cfg.Engine.MaxHistoryMessages
		o.CompletionMarker = cfg.Engine.CompletionSentinel
		o.StallTimeout = cfg.Handoff.StallTimeout
		o.Logger = logger
	})
	tm.server = api.New(tm.runner, func(o *api.Options) {
		o.BodyLimit = cfg.Server.BodyLimit
		o.Transcripts = sessions
		o.Progress = progressStore
		o.Metrics = tm.metrics
		o.Logger = logger
	})

	logger.Info("tutormesh.ready", "provider", cfg.Model.Provider, "progress", cfg.Progress.Backend)
	ok = true
	return tm, nil
}

func newModel(cfg config.Model, sentinel string) model.Model {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = cfg.Name
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Name)
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
		})
	default:
		// an offline tutor: every lesson retrieves its chunk and reports
		return model.NewMockModel("mock").SetFallbackText(sentinel)
	}
}

func (tm *TutorMesh) newContentStore(cfg config.Content) (core.ContentStore, error) {
	files, err := content.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if cfg.CacheMaxBytes <= 0 {
		return files, nil
	}
	cached, err := content.NewCachedStore(files, func(o *content.CacheOptions) {
		o.MaxCostBytes = cfg.CacheMaxBytes
		o.TTL = cfg.CacheTTL
	})
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}
	tm.closers = append(tm.closers, func() error { cached.Close(); return nil })
	return cached, nil
}

func (tm *TutorMesh) newProgressStore(ctx context.Context, cfg config.Progress) (core.ProgressStore, error) {
	var store core.ProgressStore
	switch cfg.Backend {
	case "redis":
		rs, err := redis.New(ctx, func(o *redis.Options) {
			o.Addr = cfg.RedisAddr
			o.Password = cfg.RedisPassword
			o.DB = cfg.RedisDB
			o.KeyPrefix = cfg.RedisPrefix
			o.TTL = cfg.RedisTTL
		})
		if err != nil {
			return nil, fmt.Errorf("progress redis: %w", err)
		}
		tm.closers = append(tm.closers, rs.Close)
		store = rs
	case "sqlite":
		ss, err := sqlstore.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("progress sqlite: %w", err)
		}
		tm.closers = append(tm.closers, ss.Close)
		store = ss
	default:
		store = progress.NewInMemoryStore()
	}

	if cfg.NATSURL == "" {
		return store, nil
	}
	pub, drain, err := natspub.Connect(cfg.NATSURL, store, func(o *natspub.Options) {
		o.SubjectPrefix = cfg.NATSSubject
		o.Logger = tm.logger
	})
	if err != nil {
		return nil, err
	}
	tm.closers = append(tm.closers, func() error { drain(); return nil })
	return pub, nil
}

func (tm *TutorMesh) newEngine(cfg config.Config, m model.Model, opts Options, p *workqueue.Partitioner) (*engine.Engine, error) {
	var supModel model.Model
	if cfg.Model.Provider != "mock" || opts.Model != nil {
		supModel = m
	}
	sup := agent.NewSupervisor(tool.SupervisorTools(p), func(o *agent.SupervisorOptions) {
		o.Model = supModel
		o.MaxPartitionAttempts = cfg.Engine.MaxPartitionAttempts
	})

	workers := make([]*agent.Worker, 0, len(core.Roles()))
	for _, r := range core.Roles() {
		wm := m
		if override, ok := opts.WorkerModels[r]; ok {
			wm = override
		}
		workers = append(workers, agent.NewWorker(r, wm, func(o *agent.WorkerOptions) {
			o.Sentinel = cfg.Engine.CompletionSentinel
			o.MaxProtocolRetries = cfg.Engine.MaxProtocolRetries
		}))
	}

	cm := engine.NewCallbackManager()
	cm.RegisterCallback(engine.QueueGuardCallback{})
	for _, cb := range opts.Callbacks {
		cm.RegisterCallback(cb)
	}
	return engine.NewLessonGraph(sup, workers, func(o *engine.Options) {
		o.MaxSteps = cfg.Engine.MaxSteps
		o.Callbacks = cm
		o.Logger = tm.logger
	})
}

// Handler returns the HTTP handler serving the api.
func (tm *TutorMesh) Handler() http.Handler { return tm.server.Handler() }

// Runner returns the session runner.
func (tm *TutorMesh) Runner() *runner.Runner { return tm.runner }

// Server returns the api server.
func (tm *TutorMesh) Server() *api.Server { return tm.server }

// Metrics returns the collector, or nil when metrics are disabled.
func (tm *TutorMesh) Metrics() *metrics.Collector { return tm.metrics }

// Logger returns the configured logger.
func (tm *TutorMesh) Logger() logging.Logger { return tm.logger }

// Start launches a session in-process. See runner.Runner.Start.
func (tm *TutorMesh) Start(ctx context.Context, req core.StartRequest) (string, <-chan core.Message, <-chan error, error) {
	return tm.runner.Start(ctx, req)
}

// RunSync starts a session and drains its message stream. It returns the
// transcript and the final runner status. Someone must consume the
// Handoff Channel for sessions that talk to the learner.
func (tm *TutorMesh) RunSync(ctx context.Context, req core.StartRequest) ([]core.Message, runner.Status, error) {
	_, msgs, errs, err := tm.runner.Start(ctx, req)
	if err != nil {
		return nil, runner.Status{}, err
	}

	var out []core.Message
	for m := range msgs {
		out = append(out, m)
	}
	// errs is closed right after msgs
	return out, tm.runner.Status(), <-errs
}

// Shutdown cancels the running session and waits for it to end.
func (tm *TutorMesh) Shutdown(ctx context.Context) error {
	if tm.runner == nil {
		return nil
	}
	return tm.runner.Shutdown(ctx)
}

// Close releases stores and connections in reverse order of creation.
func (tm *TutorMesh) Close() error {
	var errs []error
	for i := len(tm.closers) - 1; i >= 0; i-- {
		if err := tm.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	tm.closers = nil
	return errors.Join(errs...)
}
