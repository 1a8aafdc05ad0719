package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"golang.org/x/sync/errgroup"

	domainauth "clipsync-server-go/internal/domain/auth"
	authstore "clipsync-server-go/internal/domain/auth/store"
	"clipsync-server-go/internal/domain/sync"
	platformconfig "clipsync-server-go/internal/platform/config"
	platformerrors "clipsync-server-go/internal/platform/errors"
	platformlogging "clipsync-server-go/internal/platform/logging"
	platformstorage "clipsync-server-go/internal/platform/storage"
	"clipsync-server-go/internal/platform/storage/blob"
	"clipsync-server-go/internal/platform/storage/migrations"
	httptransport "clipsync-server-go/internal/transport/http"
	"clipsync-server-go/internal/transport/http/authapi"
	"clipsync-server-go/internal/transport/http/clipboardapi"
	"clipsync-server-go/internal/transport/http/deviceapi"
	"clipsync-server-go/internal/transport/http/fileapi"
	wstransport "clipsync-server-go/internal/transport/ws"
)

const shutdownGrace = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Execute   stepFn
}

type appState struct {
	config *platformconfig.Config
	logger *platformlogging.Logger

	bus           EventBus.Bus
	users         *platformstorage.UserRepository
	clipboard     *platformstorage.ClipboardRepository
	devices       *platformstorage.DeviceRepository
	blobs         *blob.Store
	sessions      authstore.Store
	authManager   *domainauth.Manager
	registry      *sync.Registry
	queue         *sync.BroadcastQueue
	orchestrator  *sync.Orchestrator
	wsServer      *wstransport.Server
	httpEngine    http.Handler
}

// InitGraph declares the startup steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config",
			Title:   "load configuration",
			Execute: stepConfig,
		},
		{
			ID:        "logging",
			Title:     "initialise logging",
			DependsOn: []string{"config"},
			Execute:   stepLogging,
		},
		{
			ID:        "storage",
			Title:     "open database and run migrations",
			DependsOn: []string{"config", "logging"},
			Execute:   stepStorage,
		},
		{
			ID:        "auth",
			Title:     "initialise authentication",
			DependsOn: []string{"storage"},
			Execute:   stepAuth,
		},
		{
			ID:        "sync",
			Title:     "assemble sync engine",
			DependsOn: []string{"storage", "auth"},
			Execute:   stepSync,
		},
		{
			ID:        "transports",
			Title:     "build transports",
			DependsOn: []string{"sync"},
			Execute:   stepTransports,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	done := make(map[string]bool, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if !done[dep] {
				return platformerrors.New(platformerrors.KindBootstrap, "bootstrap."+step.ID,
					fmt.Sprintf("dependency %s not initialised", dep))
			}
		}
		if err := step.Execute(ctx, state); err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap."+step.ID,
				step.Title+" failed", err)
		}
		done[step.ID] = true
	}
	return nil
}

func stepConfig(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	return nil
}

func stepLogging(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	logger.InfoTag("Bootstrap", "configuration loaded, log level %s", state.config.Log.Level)
	return nil
}

func stepStorage(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage.SQLitePath)
	if err != nil {
		return err
	}

	manager := platformstorage.NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration001Initial{})
	if err := manager.RunMigrations(); err != nil {
		return err
	}

	state.users = platformstorage.NewUserRepository(db, state.config.Sync.DefaultMaxHistoryItems)
	state.clipboard = platformstorage.NewClipboardRepository(db)
	state.devices = platformstorage.NewDeviceRepository(db)

	blobs, err := blob.NewStore(state.config.Storage.UploadDir)
	if err != nil {
		return err
	}
	state.blobs = blobs

	state.logger.InfoTag("Storage", "database ready at %s", state.config.Storage.SQLitePath)
	return nil
}

func stepAuth(_ context.Context, state *appState) error {
	sessionCfg := state.config.Auth.Session
	storeCfg := authstore.Config{
		Driver: sessionCfg.Type,
		TTL:    time.Duration(sessionCfg.TTL),
	}
	if sessionCfg.Type == authstore.DriverRedis {
		storeCfg.Redis = &authstore.RedisConfig{
			Addr:     sessionCfg.Redis.Addr,
			Username: sessionCfg.Redis.Username,
			Password: sessionCfg.Redis.Password,
			DB:       sessionCfg.Redis.DB,
			Prefix:   sessionCfg.Redis.Prefix,
		}
	}
	sessions, err := authstore.New(storeCfg)
	if err != nil {
		return err
	}
	state.sessions = sessions

	issuer := domainauth.NewTokenIssuer(state.config.Auth.Secret).
		WithTTL(time.Duration(state.config.Auth.TokenTTL))
	state.authManager = domainauth.NewManager(state.users, issuer, sessions, state.logger)

	state.logger.InfoTag("Auth", "session store: %s, token ttl %s", sessionCfg.Type, issuer.TTL())
	return nil
}

func stepSync(_ context.Context, state *appState) error {
	state.bus = EventBus.New()
	state.registry = sync.NewRegistry(state.logger, state.bus).
		WithSupersedeTimeout(time.Duration(state.config.Sync.SupersedeTimeout))

	presence := sync.NewPresenceRecorder(state.devices, state.logger)
	if err := presence.Subscribe(state.bus); err != nil {
		return err
	}

	state.queue = sync.NewBroadcastQueue(state.registry, state.config.Sync.QueueSize, state.logger)
	evictor := sync.NewEvictor(state.clipboard, state.blobs, state.users, state.logger)
	state.orchestrator = sync.NewOrchestrator(
		state.clipboard,
		sync.NewDeduper(state.clipboard),
		evictor,
		state.queue,
		state.registry,
		time.Duration(state.config.Sync.StoreTimeout),
		state.logger,
	)
	return nil
}

func stepTransports(_ context.Context, state *appState) error {
	wsCfg := state.config.Transport.WebSocket
	handshakeTimeout := time.Duration(wsCfg.HandshakeTimeout)
	handler := wstransport.NewHandler(state.authManager, state.registry, state.orchestrator,
		handshakeTimeout, state.logger)
	state.wsServer = wstransport.NewServer(wstransport.ServerConfig{
		Addr:             fmt.Sprintf("%s:%d", wsCfg.IP, wsCfg.Port),
		Path:             wsCfg.Path,
		HandshakeTimeout: handshakeTimeout,
	}, handler, state.registry, state.logger)

	router, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         state.logger,
		AuthMiddleware: httptransport.AuthMiddleware(state.authManager),
		StaticRoot:     state.config.Web.StaticDir,
	})
	if err != nil {
		return err
	}

	authapi.NewService(state.users, state.authManager, state.logger).
		Register(router.API, router.Secured)
	clipboardapi.NewService(state.clipboard, state.orchestrator, state.blobs, state.logger).
		Register(router.Secured)
	fileapi.NewService(state.blobs, state.clipboard, state.logger).Register(router.Secured)
	deviceapi.NewService(state.registry, state.devices).Register(router.Secured)

	state.httpEngine = router.Engine
	return nil
}

// Run starts the whole service lifecycle: configuration, dependencies, both
// listeners, and graceful shutdown on SIGINT/SIGTERM.
func Run(ctx context.Context) error {
	state := &appState{}
	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}
	logger := state.logger
	defer logger.Close()
	defer func() {
		if state.sessions != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = state.sessions.Close(closeCtx)
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state.queue.Start(rootCtx)
	defer state.queue.Stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", state.config.Web.IP, state.config.Web.Port),
		Handler: state.httpEngine,
	}
	group.Go(func() error {
		logger.InfoTag("HTTP", "listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return state.wsServer.Start(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancelShutdown()
		_ = httpSrv.Shutdown(shutdownCtx)
		return state.wsServer.Stop()
	})

	logger.InfoTag("Bootstrap", "server started")

	<-signalCtx.Done()
	logger.InfoTag("Bootstrap", "shutdown signal received")
	cancel()

	if err := group.Wait(); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.shutdown",
			"service exited with error", err)
	}
	logger.InfoTag("Bootstrap", "shutdown complete")
	return nil
}
