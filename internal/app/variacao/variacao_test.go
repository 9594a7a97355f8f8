package variacao

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

func data(ano int, mes time.Month, dia int) *time.Time {
	d := time.Date(ano, mes, dia, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestClassificar_Faixas(t *testing.T) {
	assert.Equal(t, Excelente, Classificar(7, 7))
	assert.Equal(t, Bom, Classificar(10.5, 7))
	assert.Equal(t, Atencao, Classificar(14, 7))
	assert.Equal(t, Critico, Classificar(14.1, 7))
}

func TestCalcular_QuandoEmissaoBaixa_DeveMedirEDescartarNegativos(t *testing.T) {
	ctes := []domain.CTe{
		{DataEmissao: data(2025, 1, 1), DataBaixa: data(2025, 1, 21)},
		{DataEmissao: data(2025, 1, 1), DataBaixa: data(2025, 2, 10)},
		{DataEmissao: data(2025, 1, 1), DataBaixa: data(2025, 3, 2)},
		{DataEmissao: data(2025, 1, 10), DataBaixa: data(2025, 1, 5)},
		{DataEmissao: data(2025, 1, 10)},
	}

	metricas := Calcular(ctes)

	require.Len(t, metricas, len(Etapas))
	var baixa Metrica
	for _, m := range metricas {
		if m.Chave == "emissao_baixa" {
			baixa = m
		}
	}
	assert.Equal(t, 3, baixa.Quantidade)
	assert.Equal(t, 40.0, baixa.Media)
	assert.Equal(t, 40.0, baixa.Mediana)
	assert.Equal(t, 20.0, baixa.Minimo)
	assert.Equal(t, 60.0, baixa.Maximo)
	assert.Equal(t, 56.0, baixa.P90)
	assert.Equal(t, 33.33, baixa.DesvioMeta)
	assert.Equal(t, Bom, baixa.Desempenho)
}

func TestCalcular_QuandoSemAmostras_DeveMarcarSemDados(t *testing.T) {
	for _, m := range Calcular(nil) {
		assert.Equal(t, SemDados, m.Desempenho, m.Chave)
		assert.Zero(t, m.Quantidade)
		assert.Greater(t, m.MetaDias, 0)
	}
}
