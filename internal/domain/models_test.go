package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParaMapa_DeveUsarChavesCanonicasEDerivados(t *testing.T) {
	placa := "ABC1D23"
	c := CTe{
		ID:               7,
		NumeroCTe:        1001,
		DestinatarioNome: "Cliente A",
		VeiculoPlaca:     &placa,
		ValorTotal:       decimal.RequireFromString("1500.5"),
		DataEmissao:      dia(2025, 1, 15),
		OrigemDados:      OrigemImportacao,
		CreatedAt:        time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	m := c.ParaMapa()

	assert.Equal(t, uint(7), m["id"])
	assert.Equal(t, int64(1001), m["numero_cte"])
	assert.Equal(t, "1500.50", m["valor_total"])
	assert.Equal(t, "2025-01-15", m["data_emissao"])
	assert.Equal(t, "ABC1D23", m["veiculo_placa"])
	assert.Nil(t, m["data_baixa"])
	assert.Nil(t, m["numero_fatura"])
	assert.Equal(t, "Emitido", m["status_processo"])
	assert.Equal(t, false, m["has_baixa"])
	assert.Equal(t, false, m["processo_completo"])
	assert.Equal(t, "2025-02-01T10:00:00Z", m["created_at"])
	_, temUpdated := m["updated_at"]
	assert.False(t, temUpdated)
}

func TestDiasEntre(t *testing.T) {
	inicio := time.Date(2024, 12, 1, 23, 59, 0, 0, time.UTC)
	fim := time.Date(2025, 2, 1, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 62, DiasEntre(inicio, fim))
	assert.Equal(t, -62, DiasEntre(fim, inicio))
	assert.Equal(t, 0, DiasEntre(fim, fim))
}
