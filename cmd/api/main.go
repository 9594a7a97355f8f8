// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/marcelojr/gestao-ctes/internal/app/analitico"
	"github.com/marcelojr/gestao-ctes/internal/app/ctes"
	"github.com/marcelojr/gestao-ctes/internal/app/httpapi"
	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/platform/clock"
	"github.com/marcelojr/gestao-ctes/internal/platform/config"
	"github.com/marcelojr/gestao-ctes/internal/platform/health"
	"github.com/marcelojr/gestao-ctes/internal/platform/ids"
	"github.com/marcelojr/gestao-ctes/internal/platform/logger"
	"github.com/marcelojr/gestao-ctes/internal/platform/migrations"
	"github.com/marcelojr/gestao-ctes/internal/platform/ratelimit"
	postgresstorage "github.com/marcelojr/gestao-ctes/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/gestao-ctes/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	log := logger.L()

	loc, err := clock.Load(cfg.Timezone)
	if err != nil {
		logger.Fatal("fuso horario invalido", "timezone", cfg.Timezone, "err", err)
	}
	relogio := clock.NewSystemClock(loc)

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	regras := cfg.Regras()
	repo := postgresstorage.NewCTeRepository(db)

	deps := httpapi.Dependencias{
		CTes:       ctes.NewService(repo, relogio, regras, log),
		Importador: importacao.NewPipeline(repo, relogio, regras, log, cfg.ImportBatchSize),
		Analitico:  analitico.NewService(repo, relogio, log),
		Clock:      relogio,
		MaxUpload:  cfg.ImportMaxUploadSize,
		Logger:     log,
	}

	// Sem Redis a API segue só com importação síncrona e sem rate limit.
	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("falha ao conectar no redis", "err", err)
		}
		defer redisClient.Close()

		gen := ids.NewGenerator()
		deps.Fila = redisstorage.NewFilaImportacao(redisClient, cfg.ImportQueueKey)
		deps.Resultados = redisstorage.NewResultadoStore(redisClient, cfg.ImportResultPrefix, cfg.ImportResultTTL)
		deps.NovoID = gen.New
		if cfg.RateLimitEnabled {
			deps.Limitador = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitMaxActions, cfg.RateLimitWindow(), cfg.RateLimitKeyPrefix)
		}
	}

	mux := http.NewServeMux()
	httpapi.New(deps).Register(mux)

	checker := health.NewChecker(sqlDB, redisClient)
	mux.HandleFunc("GET /healthz", checker.LiveHandler())
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           httpapi.Instrumentar(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress, "redis", cfg.RedisEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}
