package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("registro nao encontrado")
	ErrDuplicado = errors.New("registro duplicado")
	ErrInvalido  = errors.New("registro invalido")
)

// ErroValidacao agrega todas as violações encontradas em um CT-e.
type ErroValidacao struct {
	Mensagens []string
}

func (e *ErroValidacao) Error() string {
	return strings.Join(e.Mensagens, "; ")
}

func (e *ErroValidacao) Unwrap() error { return ErrInvalido }

// Regras parametriza as invariantes que variam por implantação.
type Regras struct {
	ValorMaximo decimal.Decimal
}

func RegrasPadrao() Regras {
	return Regras{ValorMaximo: decimal.NewFromInt(ValorMaximoPadrao)}
}

const (
	MsgNumeroInvalido    = "número do CT-e deve ser um inteiro positivo"
	MsgDestinatarioCurto = "nome do destinatário deve ter pelo menos 3 caracteres"
	MsgPlacaInvalida     = "placa do veículo deve ter entre 7 e 8 caracteres"
	MsgFaturaLonga       = "número da fatura deve ter no máximo 50 caracteres"
	MsgValorNegativo     = "valor total não pode ser negativo"
	MsgValorAcimaLimite  = "valor total acima do limite permitido"
	MsgEmissaoFutura     = "data de emissão não pode ser futura"
	MsgBaixaFutura       = "data de baixa não pode ser futura"
	MsgBaixaAntesEmissao = "data de baixa não pode ser anterior à data de emissão"
	MsgOrigemObrigatoria = "origem dos dados é obrigatória"
)

// Violacoes lista as invariantes quebradas considerando hoje como a data civil corrente.
func (c CTe) Violacoes(hoje time.Time, regras Regras) []string {
	var msgs []string
	hoje = Dia(hoje)

	if c.NumeroCTe <= 0 {
		msgs = append(msgs, MsgNumeroInvalido)
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.DestinatarioNome)) < TamanhoMinCliente {
		msgs = append(msgs, MsgDestinatarioCurto)
	}
	if c.VeiculoPlaca != nil {
		n := utf8.RuneCountInString(*c.VeiculoPlaca)
		if n < TamanhoMinPlaca || n > TamanhoMaxPlaca {
			msgs = append(msgs, MsgPlacaInvalida)
		}
	}
	if c.NumeroFatura != nil && utf8.RuneCountInString(*c.NumeroFatura) > TamanhoMaxFatura {
		msgs = append(msgs, MsgFaturaLonga)
	}
	if c.ValorTotal.IsNegative() {
		msgs = append(msgs, MsgValorNegativo)
	}
	if !regras.ValorMaximo.IsZero() && c.ValorTotal.GreaterThan(regras.ValorMaximo) {
		msgs = append(msgs, MsgValorAcimaLimite)
	}
	if c.DataEmissao != nil && Dia(*c.DataEmissao).After(hoje) {
		msgs = append(msgs, MsgEmissaoFutura)
	}
	if c.DataBaixa != nil {
		if Dia(*c.DataBaixa).After(hoje) {
			msgs = append(msgs, MsgBaixaFutura)
		}
		if c.DataEmissao != nil && Dia(*c.DataBaixa).Before(Dia(*c.DataEmissao)) {
			msgs = append(msgs, MsgBaixaAntesEmissao)
		}
	}
	return msgs
}

// Validar devolve *ErroValidacao quando alguma invariante não se sustenta.
func (c CTe) Validar(hoje time.Time, regras Regras) error {
	msgs := c.Violacoes(hoje, regras)
	if strings.TrimSpace(c.OrigemDados) == "" {
		msgs = append(msgs, MsgOrigemObrigatoria)
	}
	if len(msgs) == 0 {
		return nil
	}
	return &ErroValidacao{Mensagens: msgs}
}
