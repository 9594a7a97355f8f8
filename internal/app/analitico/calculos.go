package analitico

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcelojr/gestao-ctes/internal/app/estatistica"
	"github.com/marcelojr/gestao-ctes/internal/domain"
)

const formatoMes = "2006-01"

// CenariosEstresse são as quantidades de maiores clientes removidos na simulação.
var CenariosEstresse = []int{1, 2, 3, 5, 10}

// TamanhoRanking limita a lista de concentração de clientes.
const TamanhoRanking = 10

type Mes struct {
	Mes        string  `json:"mes"`
	Receita    float64 `json:"receita"`
	Quantidade int     `json:"quantidade"`
}

type ReceitaMensal struct {
	Meses              []Mes   `json:"meses"`
	ReceitaMesCorrente float64 `json:"receita_mes_corrente"`
	ReceitaMesAnterior float64 `json:"receita_mes_anterior"`
	VariacaoPercentual float64 `json:"variacao_percentual"`
}

type Cliente struct {
	Posicao    int     `json:"posicao"`
	Nome       string  `json:"nome"`
	Receita    float64 `json:"receita"`
	Percentual float64 `json:"percentual"`
	Quantidade int     `json:"quantidade"`
}

type Concentracao struct {
	TotalClientes  int       `json:"total_clientes"`
	PercentualTop5 float64   `json:"percentual_top5"`
	Ranking        []Cliente `json:"ranking"`
}

type TempoCobranca struct {
	Quantidade int     `json:"quantidade"`
	Media      float64 `json:"media"`
	Mediana    float64 `json:"mediana"`
	P90        float64 `json:"p90"`
}

type Tendencia struct {
	Inclinacao         float64 `json:"inclinacao"`
	RSquared           float64 `json:"r_squared"`
	PrevisaoProximoMes float64 `json:"previsao_proximo_mes"`
	Direcao            string  `json:"direcao"`
}

type CenarioEstresse struct {
	ClientesRemovidos int      `json:"clientes_removidos"`
	Clientes          []string `json:"clientes"`
	ReceitaPerdida    float64  `json:"receita_perdida"`
	PercentualImpacto float64  `json:"percentual_impacto"`
	ReceitaRestante   float64  `json:"receita_restante"`
}

type ReceitaInclusao struct {
	Total      float64 `json:"total"`
	Quantidade int     `json:"quantidade"`
	Cobertura  float64 `json:"cobertura"`
	Meses      []Mes   `json:"meses"`
}

type Graficos struct {
	Labels      []string  `json:"labels"`
	Valores     []float64 `json:"valores"`
	Quantidades []int     `json:"quantidades"`
}

func paraFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func inicioMes(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// mesesEntre lista os meses de desde até ate, inclusive.
func mesesEntre(desde, ate time.Time) []string {
	var meses []string
	for m := inicioMes(desde); !m.After(inicioMes(ate)); m = m.AddDate(0, 1, 0) {
		meses = append(meses, m.Format(formatoMes))
	}
	return meses
}

type acumulado struct {
	soma       decimal.Decimal
	quantidade int
}

func agruparPorMes(ctes []domain.CTe, data func(domain.CTe) *time.Time) map[string]*acumulado {
	grupos := make(map[string]*acumulado)
	for _, c := range ctes {
		d := data(c)
		if d == nil {
			continue
		}
		chave := d.Format(formatoMes)
		a, ok := grupos[chave]
		if !ok {
			a = &acumulado{}
			grupos[chave] = a
		}
		a.soma = a.soma.Add(c.ValorTotal)
		a.quantidade++
	}
	return grupos
}

func serieMensal(grupos map[string]*acumulado, meses []string) []Mes {
	serie := make([]Mes, len(meses))
	for i, m := range meses {
		serie[i] = Mes{Mes: m}
		if a, ok := grupos[m]; ok {
			serie[i].Receita = paraFloat(a.soma)
			serie[i].Quantidade = a.quantidade
		}
	}
	return serie
}

func CalcularReceitaMensal(ctes []domain.CTe, desde, hoje time.Time) ReceitaMensal {
	grupos := agruparPorMes(ctes, func(c domain.CTe) *time.Time { return c.DataEmissao })

	var corrente, anterior decimal.Decimal
	if a, ok := grupos[hoje.Format(formatoMes)]; ok {
		corrente = a.soma
	}
	if a, ok := grupos[inicioMes(hoje).AddDate(0, -1, 0).Format(formatoMes)]; ok {
		anterior = a.soma
	}

	return ReceitaMensal{
		Meses:              serieMensal(grupos, mesesEntre(desde, hoje)),
		ReceitaMesCorrente: paraFloat(corrente),
		ReceitaMesAnterior: paraFloat(anterior),
		VariacaoPercentual: variacaoPercentual(corrente, anterior),
	}
}

func variacaoPercentual(corrente, anterior decimal.Decimal) float64 {
	switch {
	case anterior.IsPositive():
		v := corrente.Sub(anterior).Div(anterior).Mul(decimal.NewFromInt(100))
		return v.Round(2).InexactFloat64()
	case corrente.IsPositive():
		return 100
	default:
		return 0
	}
}

type receitaCliente struct {
	nome       string
	soma       decimal.Decimal
	quantidade int
}

// rankingClientes ordena por receita decrescente; empate pelo nome.
func rankingClientes(ctes []domain.CTe) ([]receitaCliente, decimal.Decimal) {
	porNome := make(map[string]*receitaCliente)
	var total decimal.Decimal
	for _, c := range ctes {
		r, ok := porNome[c.DestinatarioNome]
		if !ok {
			r = &receitaCliente{nome: c.DestinatarioNome}
			porNome[c.DestinatarioNome] = r
		}
		r.soma = r.soma.Add(c.ValorTotal)
		r.quantidade++
		total = total.Add(c.ValorTotal)
	}

	ranking := make([]receitaCliente, 0, len(porNome))
	for _, r := range porNome {
		ranking = append(ranking, *r)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if !ranking[i].soma.Equal(ranking[j].soma) {
			return ranking[i].soma.GreaterThan(ranking[j].soma)
		}
		return ranking[i].nome < ranking[j].nome
	})
	return ranking, total
}

func percentual(parte, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return parte.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

func somaTop(ranking []receitaCliente, n int) decimal.Decimal {
	var soma decimal.Decimal
	for i := 0; i < n && i < len(ranking); i++ {
		soma = soma.Add(ranking[i].soma)
	}
	return soma
}

func CalcularConcentracao(ctes []domain.CTe, tamanho int) Concentracao {
	ranking, total := rankingClientes(ctes)
	c := Concentracao{
		TotalClientes:  len(ranking),
		PercentualTop5: percentual(somaTop(ranking, 5), total),
		Ranking:        []Cliente{},
	}
	for i := 0; i < tamanho && i < len(ranking); i++ {
		c.Ranking = append(c.Ranking, Cliente{
			Posicao:    i + 1,
			Nome:       ranking[i].nome,
			Receita:    paraFloat(ranking[i].soma),
			Percentual: percentual(ranking[i].soma, total),
			Quantidade: ranking[i].quantidade,
		})
	}
	return c
}

func receitaTotal(ctes []domain.CTe) decimal.Decimal {
	var total decimal.Decimal
	for _, c := range ctes {
		total = total.Add(c.ValorTotal)
	}
	return total
}

func CalcularTicketMedio(ctes []domain.CTe) float64 {
	if len(ctes) == 0 {
		return 0
	}
	return paraFloat(receitaTotal(ctes).Div(decimal.NewFromInt(int64(len(ctes)))))
}

// CalcularTempoCobranca usa só CT-es com emissão e baixa.
func CalcularTempoCobranca(ctes []domain.CTe) TempoCobranca {
	var dias []float64
	for _, c := range ctes {
		if c.DataEmissao == nil || c.DataBaixa == nil {
			continue
		}
		dias = append(dias, float64(domain.DiasEntre(*c.DataEmissao, *c.DataBaixa)))
	}
	return TempoCobranca{
		Quantidade: len(dias),
		Media:      estatistica.Arredondar2(estatistica.Media(dias)),
		Mediana:    estatistica.Arredondar2(estatistica.Mediana(dias)),
		P90:        estatistica.Arredondar2(estatistica.Percentil(dias, 90)),
	}
}

// CalcularTendencia ajusta a reta sobre a receita dos meses da janela, em ordem.
// A previsão nunca é negativa.
func CalcularTendencia(meses []Mes) Tendencia {
	y := make([]float64, len(meses))
	for i, m := range meses {
		y[i] = m.Receita
	}
	reta := estatistica.MinimosQuadrados(y)
	previsao := reta.Em(float64(len(y)))
	if previsao < 0 {
		previsao = 0
	}

	t := Tendencia{
		Inclinacao:         estatistica.Arredondar2(reta.Inclinacao),
		RSquared:           estatistica.Arredondar2(reta.RQuadrado),
		PrevisaoProximoMes: estatistica.Arredondar2(previsao),
		Direcao:            "estavel",
	}
	switch {
	case t.Inclinacao > 0:
		t.Direcao = "crescente"
	case t.Inclinacao < 0:
		t.Direcao = "decrescente"
	}
	return t
}

func CalcularEstresse(ctes []domain.CTe) []CenarioEstresse {
	ranking, total := rankingClientes(ctes)
	cenarios := make([]CenarioEstresse, 0, len(CenariosEstresse))
	for _, n := range CenariosEstresse {
		perdida := somaTop(ranking, n)
		nomes := make([]string, 0, n)
		for i := 0; i < n && i < len(ranking); i++ {
			nomes = append(nomes, ranking[i].nome)
		}
		cenarios = append(cenarios, CenarioEstresse{
			ClientesRemovidos: n,
			Clientes:          nomes,
			ReceitaPerdida:    paraFloat(perdida),
			PercentualImpacto: percentual(perdida, total),
			ReceitaRestante:   paraFloat(total.Sub(perdida)),
		})
	}
	return cenarios
}

// CalcularReceitaInclusao agrega pela data de inclusão na fatura; cobertura é a fração
// dos CT-es filtrados que já têm essa data.
func CalcularReceitaInclusao(ctes []domain.CTe) ReceitaInclusao {
	grupos := agruparPorMes(ctes, func(c domain.CTe) *time.Time { return c.DataInclusaoFatura })

	meses := make([]string, 0, len(grupos))
	var total decimal.Decimal
	quantidade := 0
	for m, a := range grupos {
		meses = append(meses, m)
		total = total.Add(a.soma)
		quantidade += a.quantidade
	}
	sort.Strings(meses)

	r := ReceitaInclusao{
		Total:      paraFloat(total),
		Quantidade: quantidade,
		Meses:      serieMensal(grupos, meses),
	}
	if len(ctes) > 0 {
		r.Cobertura = estatistica.Arredondar2(estatistica.Percentual(float64(quantidade), float64(len(ctes))))
	}
	return r
}

func MontarGraficos(meses []Mes) Graficos {
	g := Graficos{
		Labels:      make([]string, len(meses)),
		Valores:     make([]float64, len(meses)),
		Quantidades: make([]int, len(meses)),
	}
	for i, m := range meses {
		g.Labels[i] = m.Mes
		g.Valores[i] = m.Receita
		g.Quantidades[i] = m.Quantidade
	}
	return g
}
