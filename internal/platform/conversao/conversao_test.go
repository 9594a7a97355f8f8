package conversao

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseData_QuandoFormatosAceitos_DeveNormalizarParaMeiaNoiteUTC(t *testing.T) {
	esperado := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, entrada := range []string{
		"2025-01-15",
		"15/01/2025",
		"15-01-2025",
		"15/01/25",
		" 15/1/2025 ",
		"2025-01-15T10:30:00Z",
		"2025-01-15 08:00:00",
		"45672",
	} {
		got, err := ParseData(entrada)
		require.NoError(t, err, entrada)
		require.NotNil(t, got, entrada)
		assert.True(t, esperado.Equal(*got), "entrada %q gerou %v", entrada, got)
	}
}

func TestParseData_QuandoEmBranco_DeveRetornarNil(t *testing.T) {
	got, err := ParseData("   ")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseData_QuandoInvalida_DeveRetornarErro(t *testing.T) {
	for _, entrada := range []string{"32/01/2025", "ontem", "123"} {
		_, err := ParseData(entrada)
		assert.ErrorIs(t, err, ErrDataInvalida, entrada)
	}
}

func TestParseMoeda_QuandoLocaisDiferentes_DeveConverterParaDecimal(t *testing.T) {
	casos := map[string]string{
		"1234.56":     "1234.56",
		"1.234,56":    "1234.56",
		"R$ 1.234,56": "1234.56",
		"R$1.234,56":  "1234.56",
		"1500,50":     "1500.50",
		"1,234.56":    "1234.56",
		"1.234.567":   "1234567.00",
		"-10,00":      "-10.00",
		"(25,10)":     "-25.10",
		"980":         "980.00",
		"1500.555":    "1500.56",
	}
	for entrada, esperado := range casos {
		got, err := ParseMoeda(entrada)
		require.NoError(t, err, entrada)
		require.NotNil(t, got, entrada)
		assert.Equal(t, esperado, got.StringFixed(2), "entrada %q", entrada)
	}
}

func TestParseMoeda_QuandoEspacoInseparavel_DeveIgnorar(t *testing.T) {
	got, err := ParseMoeda("R$\u00a0300,00")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "300.00", got.StringFixed(2))
}

func TestParseMoeda_QuandoEmBrancoOuInvalido(t *testing.T) {
	got, err := ParseMoeda("")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseMoeda("R$ ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseMoeda("mil reais")
	assert.ErrorIs(t, err, ErrValorInvalido)
}

func TestParseNumero(t *testing.T) {
	casos := map[string]int64{
		"1001":                1001,
		" 42 ":                42,
		"1001.0":              1001,
		"100.000":             100000,
		"9223372036854775807": 9223372036854775807,
	}
	for entrada, esperado := range casos {
		got, err := ParseNumero(entrada)
		require.NoError(t, err, entrada)
		assert.Equal(t, esperado, got, entrada)
	}

	for _, entrada := range []string{
		"", "0", "-5", "12.5", "abc",
		"9223372036854775808",
		"18446744073709551617",
		"35250112345678000190570010000012341000012345",
	} {
		_, err := ParseNumero(entrada)
		assert.ErrorIs(t, err, ErrNumeroInvalido, entrada)
	}
}

func TestTexto(t *testing.T) {
	assert.Nil(t, Texto("  "))
	got := Texto("  ABC1D23 ")
	require.NotNil(t, got)
	assert.Equal(t, "ABC1D23", *got)
}
