// ctectl opera a base de CT-es pela linha de comando: migrações, importação e relatórios em JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/marcelojr/gestao-ctes/internal/app/analitico"
	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/clock"
	"github.com/marcelojr/gestao-ctes/internal/platform/config"
	"github.com/marcelojr/gestao-ctes/internal/platform/conversao"
	"github.com/marcelojr/gestao-ctes/internal/platform/logger"
	"github.com/marcelojr/gestao-ctes/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/gestao-ctes/internal/platform/storage/postgres"
)

var Version = "dev"

// ambiente concentra o que os subcomandos compartilham; os testes trocam abrirBanco e saida.
type ambiente struct {
	abrirBanco     func(ctx context.Context, dsn string) (*gorm.DB, error)
	saida          io.Writer
	log            *slog.Logger
	dataReferencia string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	amb := &ambiente{abrirBanco: postgresstorage.Open, saida: os.Stdout, log: logger.L()}
	if err := novoRootCmd(amb).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func novoRootCmd(amb *ambiente) *cobra.Command {
	root := &cobra.Command{
		Use:           "ctectl",
		Short:         "Gestão de CT-es: migrações, importação de planilhas e análises",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&amb.dataReferencia, "data-referencia", "", "data usada como hoje (AAAA-MM-DD ou DD/MM/AAAA)")

	root.AddCommand(migrarCmd(amb))
	root.AddCommand(importarCmd(amb))
	root.AddCommand(analiseCmd(amb))
	root.AddCommand(alertasCmd(amb))
	return root
}

type sessao struct {
	cfg    config.Config
	db     *gorm.DB
	repo   *postgresstorage.CTeRepository
	clock  domain.Clock
	regras domain.Regras
}

func (amb *ambiente) abrir(ctx context.Context) (*sessao, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	relogio, err := amb.relogio(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := amb.abrirBanco(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("conectar no banco: %w", err)
	}
	fechar := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	return &sessao{
		cfg:    cfg,
		db:     db,
		repo:   postgresstorage.NewCTeRepository(db),
		clock:  relogio,
		regras: cfg.Regras(),
	}, fechar, nil
}

func (amb *ambiente) relogio(cfg config.Config) (domain.Clock, error) {
	if amb.dataReferencia != "" {
		data, err := conversao.ParseData(amb.dataReferencia)
		if err != nil || data == nil {
			return nil, fmt.Errorf("--data-referencia invalida: %q", amb.dataReferencia)
		}
		return clock.Fixed{Instante: data.Add(12 * time.Hour)}, nil
	}
	loc, err := clock.Load(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("fuso horario %q: %w", cfg.Timezone, err)
	}
	return clock.NewSystemClock(loc), nil
}

func (amb *ambiente) imprimir(v any) error {
	enc := json.NewEncoder(amb.saida)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrarCmd(amb *ambiente) *cobra.Command {
	var desfazer bool
	cmd := &cobra.Command{
		Use:   "migrar",
		Short: "Aplica as migrações pendentes do banco",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, fechar, err := amb.abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer fechar()

			if desfazer {
				if err := migrations.RollbackLast(s.db); err != nil {
					return err
				}
				amb.log.Info("ultima migracao desfeita")
				return nil
			}
			if err := migrations.Run(s.db); err != nil {
				return err
			}
			amb.log.Info("migracoes aplicadas")
			return nil
		},
	}
	cmd.Flags().BoolVar(&desfazer, "desfazer", false, "desfaz a última migração aplicada")
	return cmd
}

func importarCmd(amb *ambiente) *cobra.Command {
	var opcoes importacao.Opcoes
	cmd := &cobra.Command{
		Use:   "importar <arquivo>",
		Short: "Importa um CSV ou planilha de CT-es e imprime o relatório",
		Long: `Importa CT-es de .csv, .txt, .xlsx, .xlsm ou .xls.

Exemplos:
  ctectl importar ctes.csv
  ctectl importar fechamento.xlsx --modo upsert --lote 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, fechar, err := amb.abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer fechar()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			conteudo, err := importacao.LerConteudo(f, s.cfg.ImportMaxUploadSize)
			if err != nil {
				return err
			}

			pipeline := importacao.NewPipeline(s.repo, s.clock, s.regras, amb.log, s.cfg.ImportBatchSize)
			res, err := pipeline.Importar(cmd.Context(), filepath.Base(args[0]), conteudo, opcoes)
			if errPrint := amb.imprimir(res); errPrint != nil {
				return errPrint
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opcoes.Modo, "modo", importacao.ModoInserir, "inserir, alterar ou upsert")
	cmd.Flags().IntVar(&opcoes.TamanhoLote, "lote", 0, "linhas por transação (padrão IMPORT_BATCH_SIZE)")
	cmd.Flags().StringVar(&opcoes.Origem, "origem", "", "origem_dados gravada nos CT-es")
	return cmd
}

func analiseCmd(amb *ambiente) *cobra.Command {
	filtro := analitico.Filtro{}
	cmd := &cobra.Command{
		Use:   "analise",
		Short: "Gera a análise financeira completa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, fechar, err := amb.abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer fechar()

			analise, err := analitico.NewService(s.repo, s.clock, amb.log).GerarAnaliseCompleta(cmd.Context(), filtro)
			if err != nil {
				return err
			}
			return amb.imprimir(analise)
		},
	}
	cmd.Flags().IntVar(&filtro.Dias, "dias", 365, "janela de emissão em dias")
	cmd.Flags().StringVar(&filtro.Cliente, "cliente", "", "filtra pelo nome do destinatário")
	return cmd
}

func alertasCmd(amb *ambiente) *cobra.Command {
	filtro := analitico.Filtro{}
	cmd := &cobra.Command{
		Use:   "alertas",
		Short: "Lista as pendências por etapa do processo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, fechar, err := amb.abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer fechar()

			rel, err := analitico.NewService(s.repo, s.clock, amb.log).Alertas(cmd.Context(), filtro)
			if err != nil {
				return err
			}
			return amb.imprimir(rel)
		},
	}
	cmd.Flags().IntVar(&filtro.Dias, "dias", 0, "janela de emissão em dias (0 = base inteira)")
	cmd.Flags().StringVar(&filtro.Cliente, "cliente", "", "filtra pelo nome do destinatário")
	return cmd
}
