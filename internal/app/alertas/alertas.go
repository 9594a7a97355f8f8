// Pacote alertas classifica CT-es parados em alguma etapa do processo de cobrança.
package alertas

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

const (
	PrimeiroEnvioPendente = "primeiro_envio_pendente"
	EnvioFinalPendente    = "envio_final_pendente"
	CTesSemFaturas        = "ctes_sem_faturas"
	FaturasVencidas       = "faturas_vencidas"
	CTesSemAprovacao      = "ctes_sem_aprovacao"
)

const (
	SeveridadeAlta    = "alta"
	SeveridadeMedia   = "media"
	SeveridadeCritica = "critica"
)

// LimiteAmostra é o tamanho máximo da lista de exemplos de cada alerta.
const LimiteAmostra = 10

// Regra descreve um alerta: a data base, a carência em dias e o que ainda falta.
type Regra struct {
	Tipo       string
	Descricao  string
	Severidade string
	Carencia   int
	base       func(c domain.CTe) *time.Time
	pendente   func(c domain.CTe) bool
}

// Atraso devolve os dias desde a data base quando a regra dispara.
func (r Regra) Atraso(c domain.CTe, hoje time.Time) (int, bool) {
	base := r.base(c)
	if base == nil || !r.pendente(c) {
		return 0, false
	}
	dias := domain.DiasEntre(*base, hoje)
	return dias, dias > r.Carencia
}

// Regras na ordem de exibição. Faturas vencidas contam a partir do envio final.
var Regras = []Regra{
	{
		Tipo:       PrimeiroEnvioPendente,
		Descricao:  "CT-es emitidos há mais de 10 dias sem primeiro envio",
		Severidade: SeveridadeAlta,
		Carencia:   10,
		base:       func(c domain.CTe) *time.Time { return c.DataEmissao },
		pendente:   func(c domain.CTe) bool { return c.PrimeiroEnvio == nil },
	},
	{
		Tipo:       EnvioFinalPendente,
		Descricao:  "CT-es atestados há mais de 1 dia sem envio final",
		Severidade: SeveridadeMedia,
		Carencia:   1,
		base:       func(c domain.CTe) *time.Time { return c.DataAtesto },
		pendente:   func(c domain.CTe) bool { return c.EnvioFinal == nil },
	},
	{
		Tipo:       CTesSemFaturas,
		Descricao:  "CT-es atestados há mais de 3 dias sem número de fatura",
		Severidade: SeveridadeMedia,
		Carencia:   3,
		base:       func(c domain.CTe) *time.Time { return c.DataAtesto },
		pendente:   func(c domain.CTe) bool { return c.NumeroFatura == nil || *c.NumeroFatura == "" },
	},
	{
		Tipo:       FaturasVencidas,
		Descricao:  "Envio final há mais de 90 dias sem baixa",
		Severidade: SeveridadeCritica,
		Carencia:   90,
		base:       func(c domain.CTe) *time.Time { return c.EnvioFinal },
		pendente:   func(c domain.CTe) bool { return c.DataBaixa == nil },
	},
	{
		Tipo:       CTesSemAprovacao,
		Descricao:  "CT-es emitidos há mais de 7 dias sem atesto",
		Severidade: SeveridadeAlta,
		Carencia:   7,
		base:       func(c domain.CTe) *time.Time { return c.DataEmissao },
		pendente:   func(c domain.CTe) bool { return c.DataAtesto == nil },
	},
}

type Amostra struct {
	ID               uint    `json:"id"`
	NumeroCTe        int64   `json:"numero_cte"`
	DestinatarioNome string  `json:"destinatario_nome"`
	ValorTotal       float64 `json:"valor_total"`
	DiasEmAtraso     int     `json:"dias_em_atraso"`
	StatusProcesso   string  `json:"status_processo"`
}

type Alerta struct {
	Tipo           string    `json:"tipo"`
	Descricao      string    `json:"descricao"`
	Severidade     string    `json:"severidade"`
	Count          int       `json:"count"`
	ExposureAmount float64   `json:"exposure_amount"`
	SampleList     []Amostra `json:"sample_list"`

	exposicao decimal.Decimal
	amostras  []amostraOrdenavel
}

type amostraOrdenavel struct {
	valor decimal.Decimal
	item  Amostra
}

type Relatorio struct {
	DataReferencia string            `json:"data_referencia"`
	TotalAlertas   int               `json:"total_alertas"`
	ValorExposto   float64           `json:"valor_exposto"`
	Alertas        map[string]Alerta `json:"alertas"`
}

// Classificar avalia cada regra de forma independente; um CT-e pode cair em vários alertas.
func Classificar(ctes []domain.CTe, hoje time.Time) Relatorio {
	hoje = domain.Dia(hoje)
	buckets := make([]Alerta, len(Regras))
	for i, r := range Regras {
		buckets[i] = Alerta{Tipo: r.Tipo, Descricao: r.Descricao, Severidade: r.Severidade}
	}

	for _, c := range ctes {
		for i, r := range Regras {
			dias, dispara := r.Atraso(c, hoje)
			if !dispara {
				continue
			}
			b := &buckets[i]
			b.Count++
			b.exposicao = b.exposicao.Add(c.ValorTotal)
			b.amostras = append(b.amostras, amostraOrdenavel{
				valor: c.ValorTotal,
				item: Amostra{
					ID:               uint(c.ID),
					NumeroCTe:        c.NumeroCTe,
					DestinatarioNome: c.DestinatarioNome,
					ValorTotal:       c.ValorTotal.Round(2).InexactFloat64(),
					DiasEmAtraso:     dias,
					StatusProcesso:   string(c.StatusProcesso()),
				},
			})
		}
	}

	rel := Relatorio{DataReferencia: hoje.Format("2006-01-02"), Alertas: make(map[string]Alerta, len(buckets))}
	var exposto decimal.Decimal
	for _, b := range buckets {
		sort.SliceStable(b.amostras, func(i, j int) bool {
			if !b.amostras[i].valor.Equal(b.amostras[j].valor) {
				return b.amostras[i].valor.GreaterThan(b.amostras[j].valor)
			}
			return b.amostras[i].item.NumeroCTe < b.amostras[j].item.NumeroCTe
		})
		b.SampleList = make([]Amostra, 0, LimiteAmostra)
		for i := 0; i < len(b.amostras) && i < LimiteAmostra; i++ {
			b.SampleList = append(b.SampleList, b.amostras[i].item)
		}
		b.ExposureAmount = b.exposicao.Round(2).InexactFloat64()
		b.amostras = nil

		rel.TotalAlertas += b.Count
		exposto = exposto.Add(b.exposicao)
		rel.Alertas[b.Tipo] = b
	}
	rel.ValorExposto = exposto.Round(2).InexactFloat64()
	return rel
}
