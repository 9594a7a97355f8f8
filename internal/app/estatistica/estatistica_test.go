package estatistica

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaMedianaPercentil(t *testing.T) {
	valores := []float64{10, 2, 8, 4, 6}

	assert.Equal(t, 6.0, Media(valores))
	assert.Equal(t, 6.0, Mediana(valores))
	assert.InDelta(t, 9.2, Percentil(valores, 90), 1e-9)
	assert.Equal(t, 2.0, Min(valores))
	assert.Equal(t, 10.0, Max(valores))
	// Entrada não é reordenada.
	assert.Equal(t, []float64{10, 2, 8, 4, 6}, valores)
}

func TestMediana_QuandoQuantidadePar_DeveInterpolar(t *testing.T) {
	assert.Equal(t, 2.5, Mediana([]float64{1, 2, 3, 4}))
}

func TestMedidas_QuandoVazio_DevemSerZero(t *testing.T) {
	assert.Zero(t, Media(nil))
	assert.Zero(t, Mediana(nil))
	assert.Zero(t, Percentil(nil, 90))
	assert.Zero(t, Min(nil))
	assert.Zero(t, Max(nil))
}

func TestMinimosQuadrados_QuandoPontosAlinhados_DeveTerRQuadradoUm(t *testing.T) {
	r := MinimosQuadrados([]float64{100, 200, 300})

	assert.InDelta(t, 100, r.Inclinacao, 1e-9)
	assert.InDelta(t, 100, r.Intercepto, 1e-9)
	assert.InDelta(t, 1, r.RQuadrado, 1e-9)
	assert.InDelta(t, 400, r.Em(3), 1e-9)
}

func TestMinimosQuadrados_QuandoSerieComRuido_DeveAjustarReta(t *testing.T) {
	r := MinimosQuadrados([]float64{0, 1000, 400})

	assert.InDelta(t, 200, r.Inclinacao, 1e-9)
	assert.InDelta(t, 266.6667, r.Intercepto, 1e-3)
	assert.InDelta(t, 0.1579, r.RQuadrado, 1e-3)
	assert.InDelta(t, 866.6667, r.Em(3), 1e-3)
}

func TestPercentil_DeveInterpolarEntrePosicoesVizinhas(t *testing.T) {
	valores := []float64{2, 4, 6, 8, 10}

	assert.Equal(t, 4.0, Percentil(valores, 25))
	assert.InDelta(t, 2.8, Percentil(valores, 10), 1e-9)
	assert.Equal(t, 2.0, Percentil(valores, 0))
	assert.Equal(t, 10.0, Percentil(valores, 100))
}

func TestMinimosQuadrados_QuandoUmPonto_DeveSerConstante(t *testing.T) {
	r := MinimosQuadrados([]float64{250})

	assert.Zero(t, r.Inclinacao)
	assert.Zero(t, r.RQuadrado)
	assert.Equal(t, 250.0, r.Em(1))
}

func TestMinimosQuadrados_QuandoConstante_DeveTerRQuadradoZero(t *testing.T) {
	r := MinimosQuadrados([]float64{5, 5, 5})

	assert.Zero(t, r.Inclinacao)
	assert.Zero(t, r.RQuadrado)
}

func TestArredondar2EPercentual(t *testing.T) {
	assert.Equal(t, 1.24, Arredondar2(1.236))
	assert.Equal(t, -60.0, Arredondar2(Percentual(-600, 1000)))
	assert.Zero(t, Percentual(10, 0))
}
