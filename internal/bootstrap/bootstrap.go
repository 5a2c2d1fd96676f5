// Package bootstrap wires every platform connection, adapter, service, and
// HTTP route into a single runnable launcher.Launcher: Config -> connections
// -> repositories -> services -> Server -> Launcher.
package bootstrap

import (
	"context"

	"github.com/google/uuid"

	httpin "github.com/Braden-sui/Vibecodr-sub002/internal/http/in"

	"github.com/Braden-sui/Vibecodr-sub002/internal/adapters/capsulebundle"
	"github.com/Braden-sui/Vibecodr-sub002/internal/adapters/cache"
	"github.com/Braden-sui/Vibecodr-sub002/internal/adapters/eventsink"
	"github.com/Braden-sui/Vibecodr-sub002/internal/adapters/mongoaudit"
	adapterpostgres "github.com/Braden-sui/Vibecodr-sub002/internal/adapters/postgres"
	"github.com/Braden-sui/Vibecodr-sub002/internal/adapters/safety"
	"github.com/Braden-sui/Vibecodr-sub002/internal/config"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/artifactcompiler"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counter"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counterrecon"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/egressproxy"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/feed"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ingestor"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ratelimitshard"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/recipe"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runsession"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runtimeevent"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/social"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/storageaccount"
	"github.com/Braden-sui/Vibecodr-sub002/internal/shard"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/launcher"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mopentelemetry"

	platformblobstore "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/blobstore"
	platformmongo "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/mongo"
	platformpostgres "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/postgres"
	platformrabbitmq "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/rabbitmq"
	platformredis "github.com/Braden-sui/Vibecodr-sub002/pkg/platform/redis"
)

// InitServer builds the fully wired control plane: platform connections,
// adapters, domain services, the HTTP router, and the background shard
// registry and flush/sweep loops, composed under one launcher.Launcher.
func InitServer(logger mlog.Logger) (*launcher.Launcher, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	telemetry := (&mopentelemetry.Telemetry{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelColExporterEndpoint,
	}).InitializeTelemetry()

	pg := &platformpostgres.Connection{ConnectionString: cfg.PostgresConnectionString, Logger: logger}
	redisConn := &platformredis.Connection{ConnectionStringSource: cfg.RedisConnectionString, Logger: logger}
	mongoConn := &platformmongo.Connection{ConnectionStringSource: cfg.MongoConnectionString, DatabaseName: cfg.MongoDatabaseName, Logger: logger}
	rabbit := &platformrabbitmq.Connection{ConnectionStringSource: cfg.RabbitMQConnectionString, Logger: logger}
	blobs := &platformblobstore.Connection{
		Region:          cfg.BlobRegion,
		Bucket:          cfg.BlobBucket,
		Endpoint:        cfg.BlobEndpoint,
		AccessKeyID:     cfg.BlobAccessKeyID,
		SecretAccessKey: cfg.BlobSecretAccessKey,
		UsePathStyle:    cfg.BlobUsePathStyle,
	}

	registry := shard.NewRegistry(logger)
	events := eventsink.New(rabbit)
	redisCache := cache.New(redisConn)
	auditLog := mongoaudit.New(mongoConn)

	newID := func() string { return uuid.NewString() }

	// Counter Shard.
	counterStore := adapterpostgres.NewCounterStore(pg)
	counters := counter.New(registry, counterStore)
	counterFlush := &counter.FlushLoop{Coordinator: counters, Logger: logger}

	// Runtime Event Shard.
	runtimeEventStore := adapterpostgres.NewRuntimeEventStore(pg)
	runtimeEvents := runtimeevent.New(registry, runtimeEventStore, events)
	runtimeEventFlush := &runtimeevent.FlushLoop{Shard: runtimeEvents, Logger: logger}

	// Rate-Limit Shard, backing the egress proxy's per-(user,host)
	// limiter.
	rateLimiter := ratelimitshard.New(registry, redisCache, logger)

	// Quota & Run Session Manager.
	runStore := adapterpostgres.NewRunStore(pg)
	runManager := runsession.New(runStore, counters, events, int64(cfg.RuntimeMaxConcurrentActive), int64(cfg.RuntimeSessionMaxMs), nil)

	// Storage accounting, shared by the ingestor.
	userStore := adapterpostgres.NewUserStore(pg)
	accountant := storageaccount.New(userStore)

	// Artifact Compiler Coordinator.
	capsuleStore := adapterpostgres.NewCapsuleStore(pg)
	artifactStore := adapterpostgres.NewArtifactStore(pg)
	bundleSource := capsulebundle.New(capsuleStore, blobs)
	compiler := artifactcompiler.New(registry, bundleSource, artifactStore, blobs, redisCache, events, logger)

	// Bundle Ingestor. The safety classifier is the
	// permissive no-op until a real one is plugged in.
	bundleIngestor := ingestor.New(blobs, capsuleStore, accountant, compiler, safety.AllowAllClassifier{}, newID)

	// Egress Proxy.
	forwarder := egressproxy.New(egressproxy.Config{
		Enabled:             cfg.NetProxyEnabled,
		FreeNetProxyEnabled: cfg.NetProxyFreeEnabled,
		AllowlistHosts:      cfg.AllowlistHosts(),
	}, capsuleStore, rateLimiter, nil, nil)

	// Feed & Ranking.
	feedStore := adapterpostgres.NewFeedStore(pg)
	feedLister := feed.New(feedStore, artifactStore, cfg.RuntimeArtifactsEnabled, nil)

	// Social Core.
	socialStore := adapterpostgres.NewSocialStore(pg)
	socialService := social.New(socialStore, counters, auditLog, newID, nil)

	// Counter Reconciliation.
	reconStore := adapterpostgres.NewReconStore(pg)
	sweeper := counterrecon.New(reconStore, logger)
	reconLoop := &counterrecon.Loop{Sweeper: sweeper, Logger: logger}

	// Capsule Recipes.
	recipeStore := adapterpostgres.NewRecipeStore(pg)
	recipeService := recipe.New(recipeStore, capsuleStore, newID, nil)

	pingers := []func() error{
		func() error { _, err := pg.GetDB(context.Background()); return err },
		func() error { _, err := redisConn.GetDB(context.Background()); return err },
	}

	router := httpin.NewRouter(httpin.Dependencies{
		Logger:    logger,
		Telemetry: telemetry,
		Config:    cfg,
		Pingers:   pingers,
		Run:       &httpin.RunHandler{Manager: runManager, Plans: userStore},
		Capsule:   &httpin.CapsuleHandler{Ingestor: bundleIngestor, Capsules: capsuleStore, Blobs: blobs, Compiler: compiler},
		Artifact:  &httpin.ArtifactHandler{Compiler: compiler, Blobs: blobs, Cache: redisCache, Manifests: artifactStore, BundleNetworkMode: cfg.CapsuleBundleNetworkMode},
		Feed:      &httpin.FeedHandler{Lister: feedLister},
		Proxy:     &httpin.ProxyHandler{Forwarder: forwarder, Plans: userStore},
		Social:    &httpin.SocialHandler{Social: socialService},
		Recipe:    &httpin.RecipeHandler{Recipes: recipeService},
	})

	server := NewServer(cfg.ServerAddress, router, logger)

	return launcher.NewLauncher(
		launcher.WithLogger(logger),
		launcher.RunApp("HTTP Server", server),
		launcher.RunApp("Counter Flush Loop", counterFlush),
		launcher.RunApp("Runtime Event Flush Loop", runtimeEventFlush),
		launcher.RunApp("Counter Reconciliation Loop", reconLoop),
	), nil
}
