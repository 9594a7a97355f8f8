// Worker assíncrono que consome importações da fila Redis, roda o pipeline e guarda o relatório.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/app/worker"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/clock"
	"github.com/marcelojr/gestao-ctes/internal/platform/config"
	"github.com/marcelojr/gestao-ctes/internal/platform/health"
	"github.com/marcelojr/gestao-ctes/internal/platform/logger"
	"github.com/marcelojr/gestao-ctes/internal/platform/migrations"
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

	if !cfg.RedisEnabled {
		logger.Fatal("worker exige REDIS_ENABLED=true")
	}

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

	redisClient, err := redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	fila := redisstorage.NewFilaImportacao(redisClient, cfg.ImportQueueKey)
	store := redisstorage.NewResultadoStore(redisClient, cfg.ImportResultPrefix, cfg.ImportResultTTL)
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", checker.LiveHandler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	regras := cfg.Regras()
	pipeline := importacao.NewPipeline(postgresstorage.NewCTeRepository(db), relogio, regras, log, cfg.ImportBatchSize)
	processor := worker.NewImportProcessor(pipeline, store, relogio, log)

	logger.Info("worker iniciado, aguardando importacoes", "fila", cfg.ImportQueueKey)
	err = fila.Consumir(ctx, func(ctx context.Context, job domain.JobImportacao) error {
		// Um job com falha não para o consumo dos seguintes.
		if err := processor.Process(ctx, job); err != nil {
			logger.Error("erro ao processar importacao", "job", job.ID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
