package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	redisclient "github.com/quizlab/trivia-backend/internal/clients/redis"
	"github.com/quizlab/trivia-backend/internal/db"
	"github.com/quizlab/trivia-backend/internal/logger"
	"github.com/quizlab/trivia-backend/internal/ratelimit"
	"github.com/quizlab/trivia-backend/internal/store"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Redis    *goredis.Client
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	memCounters *ratelimit.MemoryCounterStore
	cancel      context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	var (
		rdb         *goredis.Client
		sessions    store.SessionStore
		counters    ratelimit.CounterStore
		memCounters *ratelimit.MemoryCounterStore
	)
	switch cfg.SessionStoreKind {
	case "memory":
		log.Warn("Using in-memory session store; state is lost on restart")
		sessions = store.NewMemoryStore()
		memCounters = ratelimit.NewMemoryCounterStore()
		counters = memCounters
	default:
		rdb, err = redisclient.NewClient(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		sessions = store.NewRedisStore(rdb, log, cfg.SessionRetention)
		counters = ratelimit.NewRedisCounterStore(rdb)
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(cfg, reposet, sessions, counters, log)
	handlerset := wireHandlers(cfg, serviceset, reposet, log)
	mw := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, mw, log)

	return &App{
		Log:         log,
		DB:          theDB,
		Redis:       rdb,
		Router:      router,
		Cfg:         cfg,
		Repos:       reposet,
		Services:    serviceset,
		memCounters: memCounters,
	}, nil
}

// Start launches the background workers: the telemetry sink, the session
// expiry sweeper (one immediate pass, then on an interval), and the counter
// sweep when running on the in-memory store.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Services.Telemetry.Start(ctx)

	go func() {
		if _, err := a.Services.Session.SweepExpired(ctx, time.Now()); err != nil {
			a.Log.Warn("Initial expiry sweep failed", "error", err)
		}
		ticker := time.NewTicker(a.Cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := a.Services.Session.SweepExpired(ctx, now); err != nil {
					a.Log.Warn("Expiry sweep failed", "error", err)
				}
			}
		}
	}()

	if a.memCounters != nil {
		go func() {
			ticker := time.NewTicker(a.Cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					a.memCounters.Sweep(now)
				}
			}
		}()
	}
}

// Run serves HTTP until ctx is cancelled, then shuts the server down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}

	srv := &http.Server{
		Addr:    a.Cfg.ListenAddr,
		Handler: a.Router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Listening", "addr", a.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Telemetry != nil {
		a.Services.Telemetry.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
