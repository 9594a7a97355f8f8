package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func dia(ano int, mes time.Month, d int) *time.Time {
	t := time.Date(ano, mes, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStatusProcesso_Escada(t *testing.T) {
	emissao := dia(2025, 1, 1)
	envio := dia(2025, 1, 2)
	atesto := dia(2025, 1, 5)
	final := dia(2025, 1, 6)
	baixa := dia(2025, 1, 20)

	casos := []struct {
		nome     string
		cte      CTe
		esperado StatusProcesso
	}{
		{"sem datas", CTe{}, StatusPendente},
		{"emitido", CTe{DataEmissao: emissao}, StatusEmitido},
		{"enviado", CTe{DataEmissao: emissao, PrimeiroEnvio: envio}, StatusEnviado},
		{"atestado", CTe{DataEmissao: emissao, PrimeiroEnvio: envio, DataAtesto: atesto}, StatusAtestado},
		{"envio final sem atesto", CTe{DataEmissao: emissao, PrimeiroEnvio: envio, EnvioFinal: final}, StatusEnvioFinal},
		{"completo", CTe{DataEmissao: emissao, PrimeiroEnvio: envio, DataAtesto: atesto, EnvioFinal: final}, StatusCompleto},
		{"finalizado", CTe{DataEmissao: emissao, PrimeiroEnvio: envio, DataAtesto: atesto, EnvioFinal: final, DataBaixa: baixa}, StatusFinalizado},
		{"baixa sem processo completo", CTe{DataEmissao: emissao, DataBaixa: baixa}, StatusEmitido},
	}

	for _, tc := range casos {
		t.Run(tc.nome, func(t *testing.T) {
			assert.Equal(t, tc.esperado, tc.cte.StatusProcesso())
		})
	}
}

func TestProcessoCompleto_QuandoFaltaPrimeiroEnvio_DeveSerFalso(t *testing.T) {
	c := CTe{DataEmissao: dia(2025, 1, 1), DataAtesto: dia(2025, 1, 5), EnvioFinal: dia(2025, 1, 6)}

	assert.False(t, c.ProcessoCompleto())
	assert.False(t, c.HasBaixa())
}
