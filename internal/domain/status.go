package domain

type StatusProcesso string

const (
	StatusFinalizado StatusProcesso = "Finalizado"
	StatusCompleto   StatusProcesso = "Completo"
	StatusEnvioFinal StatusProcesso = "Envio Final"
	StatusAtestado   StatusProcesso = "Atestado"
	StatusEnviado    StatusProcesso = "Enviado"
	StatusEmitido    StatusProcesso = "Emitido"
	StatusPendente   StatusProcesso = "Pendente"
)

func (c CTe) HasBaixa() bool {
	return c.DataBaixa != nil
}

// ProcessoCompleto exige emissão, primeiro envio, atesto e envio final.
func (c CTe) ProcessoCompleto() bool {
	return c.DataEmissao != nil && c.PrimeiroEnvio != nil && c.DataAtesto != nil && c.EnvioFinal != nil
}

// StatusProcesso é recalculado a cada leitura; a ordem dos testes define a escada.
// Envio final presente vence mesmo sem atesto.
func (c CTe) StatusProcesso() StatusProcesso {
	switch {
	case c.ProcessoCompleto() && c.HasBaixa():
		return StatusFinalizado
	case c.ProcessoCompleto():
		return StatusCompleto
	case c.EnvioFinal != nil:
		return StatusEnvioFinal
	case c.DataAtesto != nil:
		return StatusAtestado
	case c.PrimeiroEnvio != nil:
		return StatusEnviado
	case c.DataEmissao != nil:
		return StatusEmitido
	default:
		return StatusPendente
	}
}
