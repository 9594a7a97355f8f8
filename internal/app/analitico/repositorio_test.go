package analitico

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marcelojr/gestao-ctes/internal/app/alertas"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/clock"
	"github.com/marcelojr/gestao-ctes/internal/platform/migrations"
	"github.com/marcelojr/gestao-ctes/internal/platform/storage/postgres"
)

func setupRepoSQLite(t *testing.T) *postgres.CTeRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migrations.Run(db))
	return postgres.NewCTeRepository(db)
}

func gravar(t *testing.T, repo *postgres.CTeRepository, c domain.CTe) {
	c.OrigemDados = domain.OrigemImportacao
	c.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.UpdatedAt = c.CreatedAt
	require.NoError(t, repo.Create(context.Background(), &c))
}

func TestAlertas_QuandoBaseInteiraNoBanco_DeveIncluirCTesSemEmissao(t *testing.T) {
	// Arrange
	repo := setupRepoSQLite(t)
	gravar(t, repo, domain.CTe{
		NumeroCTe:        77,
		DestinatarioNome: "Cliente Vencido",
		ValorTotal:       decimal.RequireFromString("900"),
		EnvioFinal:       dia(2024, 9, 1),
	})
	gravar(t, repo, domain.CTe{
		NumeroCTe:        78,
		DestinatarioNome: "Cliente Atestado",
		ValorTotal:       decimal.RequireFromString("300"),
		DataAtesto:       dia(2025, 1, 20),
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, clock.Fixed{Instante: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}, log)

	// Act
	rel, err := svc.Alertas(context.Background(), Filtro{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, rel.Alertas[alertas.FaturasVencidas].Count)
	assert.Equal(t, 1, rel.Alertas[alertas.EnvioFinalPendente].Count)
	assert.Equal(t, 1, rel.Alertas[alertas.CTesSemFaturas].Count)
	assert.Equal(t, 900.0, rel.Alertas[alertas.FaturasVencidas].ExposureAmount)
}

func TestVariacoes_QuandoJanelaNoBanco_DeveIgnorarCTesSemEmissao(t *testing.T) {
	repo := setupRepoSQLite(t)
	comEmissao := domain.CTe{
		NumeroCTe:          1,
		DestinatarioNome:   "Cliente Alfa",
		ValorTotal:         decimal.RequireFromString("100"),
		DataEmissao:        dia(2025, 1, 10),
		DataInclusaoFatura: dia(2025, 1, 12),
	}
	gravar(t, repo, comEmissao)
	gravar(t, repo, domain.CTe{
		NumeroCTe:        2,
		DestinatarioNome: "Cliente Beta",
		ValorTotal:       decimal.RequireFromString("100"),
		PrimeiroEnvio:    dia(2025, 1, 15),
	})
	svc := NewService(repo, clock.Fixed{Instante: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}, nil)

	metricas, err := svc.Variacoes(context.Background(), Filtro{Dias: 60})

	require.NoError(t, err)
	assert.Equal(t, 1, metricas[0].Quantidade)
	assert.Equal(t, 2.0, metricas[0].Media)
}
