package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	clientshandler "github.com/photohub/photohub-saas/domains/clients/be/handler"
	clientsrepo "github.com/photohub/photohub-saas/domains/clients/be/repo"
	clientsservice "github.com/photohub/photohub-saas/domains/clients/be/service"
	eventshandler "github.com/photohub/photohub-saas/domains/events/be/handler"
	eventsrepo "github.com/photohub/photohub-saas/domains/events/be/repo"
	eventsservice "github.com/photohub/photohub-saas/domains/events/be/service"
	photographershandler "github.com/photohub/photohub-saas/domains/photographers/be/handler"
	photographersrepo "github.com/photohub/photohub-saas/domains/photographers/be/repo"
	photographersservice "github.com/photohub/photohub-saas/domains/photographers/be/service"
	referenceshandler "github.com/photohub/photohub-saas/domains/references/be/handler"
	referencesrepo "github.com/photohub/photohub-saas/domains/references/be/repo"
	referencesservice "github.com/photohub/photohub-saas/domains/references/be/service"
	studioshandler "github.com/photohub/photohub-saas/domains/studios/be/handler"
	studiosrepo "github.com/photohub/photohub-saas/domains/studios/be/repo"
	studiosservice "github.com/photohub/photohub-saas/domains/studios/be/service"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/persistence"
	"github.com/photohub/photohub-saas/platform/go/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Version:   cfg.Revision,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		ApplicationName: "photohub-api",
		ConnectAttempts: 5,
		RetryDelay:      500 * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	tenantDB := persistence.NewTenantDB(persistence.TenantDBConfig{
		Pool:             pool,
		StatementTimeout: cfg.StatementTimeout,
	})

	if cfg.AutoMigrate {
		if err := persistence.ApplySchema(ctx, tenantDB); err != nil {
			logger.Fatal("apply schema", zap.Error(err))
		}
		logger.Info("schema applied")
	}

	photographerStore, err := persistence.NewPhotographerStore(tenantDB)
	if err != nil {
		logger.Fatal("init photographer store", zap.Error(err))
	}
	clientStore, err := persistence.NewClientStore(tenantDB)
	if err != nil {
		logger.Fatal("init client store", zap.Error(err))
	}
	studioStore, err := persistence.NewStudioStore(tenantDB)
	if err != nil {
		logger.Fatal("init studio store", zap.Error(err))
	}
	referenceStore, err := persistence.NewReferenceStore(tenantDB)
	if err != nil {
		logger.Fatal("init reference store", zap.Error(err))
	}
	eventStore, err := persistence.NewEventStore(tenantDB)
	if err != nil {
		logger.Fatal("init event store", zap.Error(err))
	}

	photographerService := photographersservice.New(photographersrepo.NewPostgresRepository(photographerStore), logger)
	clientService := clientsservice.New(clientsrepo.NewPostgresRepository(clientStore), logger, time.Now)
	var objects storage.ObjectStore
	switch cfg.StorageBackend {
	case "gcs":
		gcsClient, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		defer gcsClient.Close()
		objects = storage.NewGCSStore(gcsClient)
	default:
		objects = storage.NewLocalStore(cfg.StorageLocalDir)
	}
	if err := objects.Check(ctx, cfg.MediaBucket, "photographers/"); err != nil {
		logger.Warn("media bucket not reachable; image blobs will not be removed", zap.String("bucket", cfg.MediaBucket), zap.Error(err))
	}

	studioService := studiosservice.NewWithObjectStore(studiosrepo.NewPostgresRepository(studioStore), logger, cfg.MediaBucket, objects)
	referenceService := referencesservice.NewWithObjectStore(referencesrepo.NewPostgresRepository(referenceStore), logger, cfg.MediaBucket, objects)
	eventService := eventsservice.New(eventsrepo.NewPostgresRepository(eventStore), eventsservice.Options{
		Now:         time.Now,
		QueryWindow: cfg.queryWindow(),
		Logger:      logger,
		Location:    cfg.location(),
	})

	router, err := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		auth:     buildAuthMiddleware(ctx, cfg, logger),
		resolver: photographerStore,
		ready:    persistence.Readiness(pool, 2*time.Second),
		handlers: handlers{
			events: eventshandler.New(eventService, logger, eventshandler.Config{
				Location:  cfg.location(),
				URLBase:   cfg.EventURLBase,
				UIDDomain: cfg.ICSUIDDomain,
			}),
			clients:       clientshandler.New(clientService, logger),
			studios:       studioshandler.New(studioService, logger),
			references:    referenceshandler.New(referenceService, logger),
			photographers: photographershandler.New(photographerService, logger),
		},
	})
	if err != nil {
		logger.Fatal("build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("auth", cfg.AuthProvider))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func logSecuritySchemes(logger *zap.Logger, name string, spec *openapi3.T) {
	if spec.Components.SecuritySchemes == nil {
		spec.Components.SecuritySchemes = openapi3.SecuritySchemes{}
	}

	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		spec.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:   "http",
				Scheme: "bearer",
			},
		}
		logger.Warn("injecting default bearerAuth security scheme", zap.String("contract", name))
	}

	names := make([]string, 0, len(spec.Components.SecuritySchemes))
	for n := range spec.Components.SecuritySchemes {
		names = append(names, n)
	}
	logger.Debug("loaded security schemes", zap.String("contract", name), zap.Strings("names", names))
}
