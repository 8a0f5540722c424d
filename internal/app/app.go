package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	config "github.com/northmart/reco-backend/internal/cfg"
	v1Http "github.com/northmart/reco-backend/internal/delivery/v1/http"
	"github.com/northmart/reco-backend/internal/infrastructure/embedder"
	"github.com/northmart/reco-backend/internal/infrastructure/kafka"
	"github.com/northmart/reco-backend/internal/repository/pgdb"
	pgdbConv "github.com/northmart/reco-backend/internal/repository/pgdb/converter"
	qdrantRepo "github.com/northmart/reco-backend/internal/repository/qdrant"
	"github.com/northmart/reco-backend/internal/repository/redis"
	redisConv "github.com/northmart/reco-backend/internal/repository/redis/converter"
	"github.com/northmart/reco-backend/internal/usecase"
	"github.com/northmart/reco-backend/pkg/clients"
	"github.com/northmart/reco-backend/pkg/closer"
	"github.com/northmart/reco-backend/pkg/e"
	"github.com/northmart/reco-backend/pkg/logger"
	"github.com/northmart/reco-backend/pkg/postgres"
)

// App держит собранный граф зависимостей рекомендательного сервиса.
// Ресурсы регистрируются в closer по мере инициализации и закрываются
// в обратном порядке при остановке.
type App struct {
	cfg          *config.Config
	logger       logger.Logger
	closer       *closer.Closer
	httpSrv      *v1Http.Server
	outboxWorker *kafka.OutboxWorker
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	cl := closer.NewCloser(2 * time.Second)

	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		db.Close()
		return nil
	})

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		log.Errorf(err, "failed to initialize qdrant")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	qdrantCtx, qdrantCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		qdrantCancel()
		log.Errorf(err, "failed to initialize qdrant collection")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	qdrantCancel()
	cl.Add(func(ctx context.Context) error {
		return qdrantClient.Client.Close()
	})

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(redisCtx)
	redisCancel()
	if err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return redisClient.Client.Close()
	})

	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		log.Errorf(err, "failed to initialize kafka producer")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		log.Errorf(err, "failed to ensure kafka topic")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add(func(ctx context.Context) error {
		return producer.Close()
	})

	prConv := pgdbConv.NewProductConverter()
	outboxConv := pgdbConv.NewOutboxEventConverter()
	refreshConv := pgdbConv.NewEmbeddingRefreshConverter()
	infoConv := redisConv.NewProductInfoConverter()

	productRepo := pgdb.NewProductRepo(db.Pool, prConv)
	transactionRepo := pgdb.NewTransactionRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, outboxConv)
	refreshRepo := pgdb.NewEmbeddingRefreshRepo(db.Pool, refreshConv)
	vectorIndex := qdrantRepo.NewVectorIndexRepo(qdrantClient.Client, cfg.Qdrant)
	cacheRepo := redis.NewCacheRepo(redisClient, infoConv, cfg.Redis, log)

	provider := embedder.NewService(cfg.Embedder, log)

	embeddingUC := usecase.NewEmbeddingUC(
		transactionRepo,
		vectorIndex,
		provider,
		outboxRepo,
		refreshRepo,
		db.Pool,
		log,
		cfg.Reco.HistoryLimit,
	)

	recoUC := usecase.NewRecommendationUC(
		embeddingUC,
		vectorIndex,
		productRepo,
		transactionRepo,
		cacheRepo,
		log,
		cfg.Reco.OverFetch,
	)

	worker := kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(recoUC, embeddingUC)

	return &App{
		cfg:          cfg,
		logger:       log,
		closer:       cl,
		httpSrv:      v1Http.NewServer(r, cfg.Http),
		outboxWorker: worker,
	}, nil
}

func (a *App) Run() error {
	workerCtx, workerCancel := context.WithCancel(context.Background())
	a.outboxWorker.Start(workerCtx)
	a.closer.Add(func(ctx context.Context) error {
		workerCancel()
		a.outboxWorker.Stop()
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("resource shutdown: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
