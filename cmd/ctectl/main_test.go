package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func novoAmbiente(t *testing.T) (*ambiente, *bytes.Buffer) {
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "ctes.db"))
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("CTE_VALOR_MAXIMO", "")

	saida := &bytes.Buffer{}
	return &ambiente{
		abrirBanco: func(_ context.Context, dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), &gorm.Config{
				Logger:         logger.Default.LogMode(logger.Silent),
				TranslateError: true,
			})
		},
		saida: saida,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, saida
}

func executar(amb *ambiente, args ...string) error {
	root := novoRootCmd(amb)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	return root.ExecuteContext(context.Background())
}

func escreverCSV(t *testing.T, conteudo string) string {
	caminho := filepath.Join(t.TempDir(), "ctes.csv")
	require.NoError(t, os.WriteFile(caminho, []byte(conteudo), 0o600))
	return caminho
}

func TestCtectl_QuandoMigrarEImportar_DeveImprimirRelatorio(t *testing.T) {
	// Arrange
	amb, saida := novoAmbiente(t)
	require.NoError(t, executar(amb, "migrar"))
	arquivo := escreverCSV(t, "numero_cte;destinatario_nome;valor_total;data_emissao\n"+
		"1001;Cliente Alfa;600,00;05/01/2025\n"+
		"1002;Cliente Beta;400,00;20/01/2025\n")

	// Act
	err := executar(amb, "importar", arquivo, "--data-referencia", "2025-02-15")

	// Assert
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal(saida.Bytes(), &res))
	assert.Equal(t, true, res["success"])
	insertion := res["statistics"].(map[string]any)["insertion"].(map[string]any)
	assert.Equal(t, float64(2), insertion["succeeded"])
}

func TestCtectl_QuandoAnalise_DeveCalcularSobreOsImportados(t *testing.T) {
	amb, saida := novoAmbiente(t)
	require.NoError(t, executar(amb, "migrar"))
	arquivo := escreverCSV(t, "numero_cte;destinatario_nome;valor_total;data_emissao\n"+
		"1001;Cliente Alfa;600,00;05/01/2025\n"+
		"1002;Cliente Beta;400,00;20/01/2025\n"+
		"1003;Cliente Alfa;400,00;03/02/2025\n")
	require.NoError(t, executar(amb, "importar", arquivo, "--data-referencia", "2025-02-15"))
	saida.Reset()

	err := executar(amb, "analise", "--dias", "60", "--data-referencia", "2025-02-15")

	require.NoError(t, err)
	var analise map[string]any
	require.NoError(t, json.Unmarshal(saida.Bytes(), &analise))
	mensal := analise["receita_mensal"].(map[string]any)
	assert.Equal(t, 400.0, mensal["receita_mes_corrente"])
	assert.Equal(t, 1000.0, mensal["receita_mes_anterior"])
	assert.Equal(t, -60.0, mensal["variacao_percentual"])

	rel := analise["alertas"].(map[string]any)
	pendentes := rel["alertas"].(map[string]any)["primeiro_envio_pendente"].(map[string]any)
	assert.Equal(t, float64(3), pendentes["count"])
	assert.NotEmpty(t, analise["variacoes_temporais"])
}

func TestCtectl_QuandoAlertas_DeveImprimirBuckets(t *testing.T) {
	amb, saida := novoAmbiente(t)
	require.NoError(t, executar(amb, "migrar"))
	arquivo := escreverCSV(t, "numero_cte;destinatario_nome;valor_total;data_emissao\n1001;Cliente Alfa;750,40;01/12/2024\n")
	require.NoError(t, executar(amb, "importar", arquivo, "--data-referencia", "2025-02-01"))
	saida.Reset()

	err := executar(amb, "alertas", "--data-referencia", "2025-02-01")

	require.NoError(t, err)
	var rel map[string]any
	require.NoError(t, json.Unmarshal(saida.Bytes(), &rel))
	assert.Equal(t, "2025-02-01", rel["data_referencia"])
	assert.Positive(t, rel["total_alertas"])
}

func TestCtectl_QuandoArquivoComExtensaoInvalida_DeveFalharComRelatorio(t *testing.T) {
	amb, saida := novoAmbiente(t)
	require.NoError(t, executar(amb, "migrar"))
	caminho := filepath.Join(t.TempDir(), "ctes.pdf")
	require.NoError(t, os.WriteFile(caminho, []byte("x"), 0o600))

	err := executar(amb, "importar", caminho)

	assert.Error(t, err)
	assert.Contains(t, saida.String(), `"success": false`)
}

func TestCtectl_QuandoDataReferenciaInvalida_DeveFalhar(t *testing.T) {
	amb, _ := novoAmbiente(t)

	err := executar(amb, "analise", "--data-referencia", "ontem")

	assert.ErrorContains(t, err, "--data-referencia")
}
