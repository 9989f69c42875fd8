// Package lumi assembles the task engine: backend client, cache,
// cancellation registry, data access services, realtime bridge, broadcast
// hub, and saved presets, behind one handle an application embeds.
package lumi

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lumi/backend"
	"lumi/backend/supabase"
	"lumi/internal/broadcast"
	"lumi/internal/cache"
	"lumi/internal/presets"
	"lumi/internal/realtime"
	"lumi/internal/requests"
	"lumi/internal/usecase"
)

// Lumi is the assembled engine.
type Lumi struct {
	config *Config
	logger *zap.Logger

	client   backend.Client
	cache    *cache.Store
	requests *requests.Registry
	hub      *broadcast.Hub
	bridge   *realtime.Bridge

	tasks    *usecase.TaskService
	projects *usecase.ProjectService
	profile  *usecase.ProfileService
	presets  *presets.Store

	unlisten func()
}

// New creates a Lumi instance with functional options.
func New(opts ...Option) (*Lumi, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = supabase.New(supabase.Config{
			BaseURL:    cfg.BackendURL,
			AnonKey:    cfg.AnonKey,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger.Named("backend"),
		})
		if err != nil {
			return nil, err
		}
	}

	l := &Lumi{
		config:   cfg,
		logger:   cfg.Logger,
		client:   client,
		cache:    cache.NewWithTTL(cfg.CacheFreshness, cfg.CacheEviction, cfg.Logger.Named("cache")),
		requests: requests.NewRegistry(),
		hub:      broadcast.NewHub(cfg.ChannelName, cfg.Logger.Named("broadcast")),
		presets:  presets.NewStore(cfg.Fs, cfg.PresetsPath),
	}

	attempts := cfg.RetryMaxAttempts
	l.tasks = usecase.NewTaskService(client, l.cache, l.requests, attempts, cfg.Logger.Named("tasks"))
	l.projects = usecase.NewProjectService(client, client, l.cache, l.requests, attempts, cfg.Logger.Named("projects"))
	l.profile = usecase.NewProfileService(client, client, l.cache, l.requests, attempts, cfg.Logger.Named("profile"))
	l.bridge = realtime.New(client, l.cache, l.hub, cfg.Logger.Named("realtime"))

	// Cached data belongs to the signed-in user; drop it all when the
	// session goes away.
	l.unlisten = client.Auth().OnSessionChange(func(s *backend.Session) {
		if s == nil {
			l.cache.Flush()
		}
	})

	l.logger.Info("lumi initialized",
		zap.Duration("cache_freshness", cfg.CacheFreshness),
		zap.Int("retry_attempts", attempts),
	)
	return l, nil
}

// Tasks returns the task data access service.
func (l *Lumi) Tasks() *usecase.TaskService { return l.tasks }

// Projects returns the project data access service.
func (l *Lumi) Projects() *usecase.ProjectService { return l.projects }

// Profile returns the profile data access service.
func (l *Lumi) Profile() *usecase.ProfileService { return l.profile }

// Presets returns the saved-filter store.
func (l *Lumi) Presets() *presets.Store { return l.presets }

// Realtime returns the change-feed bridge.
func (l *Lumi) Realtime() *realtime.Bridge { return l.bridge }

// Hub returns the cross-context broadcast hub.
func (l *Lumi) Hub() *broadcast.Hub { return l.hub }

// Client exposes the raw backend client.
func (l *Lumi) Client() backend.Client { return l.client }

// SignIn authenticates with email and password.
func (l *Lumi) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	return l.client.Auth().SignIn(ctx, email, password)
}

// SignUp registers a new account.
func (l *Lumi) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	return l.client.Auth().SignUp(ctx, email, password)
}

// OAuthURL builds the provider sign-in URL the application should open.
func (l *Lumi) OAuthURL(provider, redirectTo string) string {
	return l.client.Auth().OAuthURL(provider, redirectTo)
}

// Recover sends a password-reset email.
func (l *Lumi) Recover(ctx context.Context, email string) error {
	return l.client.Auth().Recover(ctx, email)
}

// SignOut ends the session.
func (l *Lumi) SignOut(ctx context.Context) error {
	return l.client.Auth().SignOut(ctx)
}

// Session returns the current session, nil when signed out.
func (l *Lumi) Session() *backend.Session {
	return l.client.Auth().Session()
}

// SetSession restores a stored session.
func (l *Lumi) SetSession(s *backend.Session) {
	l.client.Auth().SetSession(s)
}

// Close tears down the realtime bridge, cancels every in-flight request,
// and closes the broadcast hub.
func (l *Lumi) Close() {
	if l.unlisten != nil {
		l.unlisten()
	}
	l.bridge.Close()
	l.requests.AbortAll()
	l.hub.Close()
	l.logger.Info("lumi closed")
}
