// Pacote variacao mede o tempo entre etapas do processo e compara com a meta de cada par.
package variacao

import (
	"time"

	"github.com/marcelojr/gestao-ctes/internal/app/estatistica"
	"github.com/marcelojr/gestao-ctes/internal/domain"
)

const (
	Excelente = "excelente"
	Bom       = "bom"
	Atencao   = "atencao"
	Critico   = "critico"
	SemDados  = "sem_dados"
)

// Etapa é um par de datas com a meta em dias.
type Etapa struct {
	Chave  string
	Nome   string
	Meta   int
	inicio func(c domain.CTe) *time.Time
	fim    func(c domain.CTe) *time.Time
}

var Etapas = []Etapa{
	{
		Chave:  "emissao_inclusao_fatura",
		Nome:   "Emissão → Inclusão na fatura",
		Meta:   3,
		inicio: func(c domain.CTe) *time.Time { return c.DataEmissao },
		fim:    func(c domain.CTe) *time.Time { return c.DataInclusaoFatura },
	},
	{
		Chave:  "inclusao_fatura_primeiro_envio",
		Nome:   "Inclusão na fatura → 1º envio",
		Meta:   1,
		inicio: func(c domain.CTe) *time.Time { return c.DataInclusaoFatura },
		fim:    func(c domain.CTe) *time.Time { return c.PrimeiroEnvio },
	},
	{
		Chave:  "rq_tmc_primeiro_envio",
		Nome:   "RQ/TMC → 1º envio",
		Meta:   1,
		inicio: func(c domain.CTe) *time.Time { return c.DataRqTmc },
		fim:    func(c domain.CTe) *time.Time { return c.PrimeiroEnvio },
	},
	{
		Chave:  "primeiro_envio_atesto",
		Nome:   "1º envio → Atesto",
		Meta:   7,
		inicio: func(c domain.CTe) *time.Time { return c.PrimeiroEnvio },
		fim:    func(c domain.CTe) *time.Time { return c.DataAtesto },
	},
	{
		Chave:  "atesto_envio_final",
		Nome:   "Atesto → Envio final",
		Meta:   1,
		inicio: func(c domain.CTe) *time.Time { return c.DataAtesto },
		fim:    func(c domain.CTe) *time.Time { return c.EnvioFinal },
	},
	{
		Chave:  "emissao_envio_final",
		Nome:   "Emissão → Envio final",
		Meta:   15,
		inicio: func(c domain.CTe) *time.Time { return c.DataEmissao },
		fim:    func(c domain.CTe) *time.Time { return c.EnvioFinal },
	},
	{
		Chave:  "emissao_baixa",
		Nome:   "Emissão → Baixa",
		Meta:   30,
		inicio: func(c domain.CTe) *time.Time { return c.DataEmissao },
		fim:    func(c domain.CTe) *time.Time { return c.DataBaixa },
	},
}

// Metrica resume os intervalos de uma etapa; amostras negativas são descartadas.
type Metrica struct {
	Chave      string  `json:"chave"`
	Nome       string  `json:"nome"`
	MetaDias   int     `json:"meta_dias"`
	Quantidade int     `json:"quantidade"`
	Media      float64 `json:"media"`
	Mediana    float64 `json:"mediana"`
	P90        float64 `json:"p90"`
	Minimo     float64 `json:"minimo"`
	Maximo     float64 `json:"maximo"`
	DesvioMeta float64 `json:"desvio_meta"`
	Desempenho string  `json:"desempenho"`
}

func (e Etapa) intervalos(ctes []domain.CTe) []float64 {
	var dias []float64
	for _, c := range ctes {
		inicio, fim := e.inicio(c), e.fim(c)
		if inicio == nil || fim == nil {
			continue
		}
		if d := domain.DiasEntre(*inicio, *fim); d >= 0 {
			dias = append(dias, float64(d))
		}
	}
	return dias
}

func (e Etapa) Medir(ctes []domain.CTe) Metrica {
	m := Metrica{Chave: e.Chave, Nome: e.Nome, MetaDias: e.Meta, Desempenho: SemDados}
	dias := e.intervalos(ctes)
	if len(dias) == 0 {
		return m
	}

	media := estatistica.Media(dias)
	m.Quantidade = len(dias)
	m.Media = estatistica.Arredondar2(media)
	m.Mediana = estatistica.Arredondar2(estatistica.Mediana(dias))
	m.P90 = estatistica.Arredondar2(estatistica.Percentil(dias, 90))
	m.Minimo = estatistica.Min(dias)
	m.Maximo = estatistica.Max(dias)
	m.Desempenho = Classificar(media, e.Meta)
	if e.Meta > 0 {
		m.DesvioMeta = estatistica.Arredondar2((media - float64(e.Meta)) / float64(e.Meta) * 100)
	}
	return m
}

// Classificar compara a média com a meta: até 1x excelente, 1,5x bom, 2x atenção.
func Classificar(media float64, meta int) string {
	alvo := float64(meta)
	switch {
	case media <= alvo:
		return Excelente
	case media <= 1.5*alvo:
		return Bom
	case media <= 2*alvo:
		return Atencao
	default:
		return Critico
	}
}

// Calcular mede todas as etapas na ordem declarada.
func Calcular(ctes []domain.CTe) []Metrica {
	out := make([]Metrica, len(Etapas))
	for i, e := range Etapas {
		out[i] = e.Medir(ctes)
	}
	return out
}
