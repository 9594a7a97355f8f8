// Pacote analitico monta a análise financeira da carteira de CT-es a partir de uma janela de emissão.
package analitico

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/gestao-ctes/internal/app/alertas"
	"github.com/marcelojr/gestao-ctes/internal/app/variacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/metrics"
	"github.com/marcelojr/gestao-ctes/internal/platform/validacao"
)

var ErrFiltroInvalido = errors.New("filtro invalido")

const formatoDia = "2006-01-02"

// Filtro recorta a base pela emissão nos últimos Dias e, opcionalmente, pelo nome do cliente.
// Dias zero significa a base inteira; a análise completa exige uma janela.
type Filtro struct {
	Dias    int    `json:"dias" validate:"omitempty,gte=1,lte=3650"`
	Cliente string `json:"cliente" validate:"max=255"`
}

type FiltroAplicado struct {
	Dias    int    `json:"dias"`
	Cliente string `json:"cliente,omitempty"`
	Desde   string `json:"desde,omitempty"`
	Ate     string `json:"ate"`
}

type ResumoGeral struct {
	TotalCTes          int     `json:"total_ctes"`
	ReceitaTotal       float64 `json:"receita_total"`
	TotalClientes      int     `json:"total_clientes"`
	CTesComBaixa       int     `json:"ctes_com_baixa"`
	ValorEmAberto      float64 `json:"valor_em_aberto"`
	ProcessosCompletos int     `json:"processos_completos"`
}

type AnaliseCompleta struct {
	Filtro             FiltroAplicado     `json:"filtro"`
	GeradoEm           time.Time          `json:"gerado_em"`
	Resumo             ResumoGeral        `json:"resumo_geral"`
	ReceitaMensal      ReceitaMensal      `json:"receita_mensal"`
	Concentracao       Concentracao       `json:"concentracao_clientes"`
	TicketMedio        float64            `json:"ticket_medio"`
	TempoMedioCobranca TempoCobranca      `json:"tempo_medio_cobranca"`
	Tendencia          Tendencia          `json:"tendencia"`
	TesteEstresse      []CenarioEstresse  `json:"teste_estresse"`
	ReceitaPorInclusao ReceitaInclusao    `json:"receita_por_inclusao"`
	Graficos           Graficos           `json:"graficos"`
	Alertas            alertas.Relatorio  `json:"alertas"`
	Variacoes          []variacao.Metrica `json:"variacoes_temporais"`
}

type Service struct {
	repo  domain.CTeRepository
	clock domain.Clock
	log   *slog.Logger
}

func NewService(repo domain.CTeRepository, clock domain.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, clock: clock, log: log}
}

func (s *Service) carregar(ctx context.Context, filtro Filtro) ([]domain.CTe, FiltroAplicado, time.Time, error) {
	if err := validacao.Struct(filtro); err != nil {
		return nil, FiltroAplicado{}, time.Time{}, fmt.Errorf("%w: %w", ErrFiltroInvalido, err)
	}

	hoje := domain.Dia(s.clock.Agora())
	aplicado := FiltroAplicado{Dias: filtro.Dias, Cliente: filtro.Cliente, Ate: hoje.Format(formatoDia)}
	// Sem janela a leitura não filtra por emissão: CT-es sem data de emissão também entram.
	repoFiltro := domain.FiltroCTe{Cliente: filtro.Cliente}
	if filtro.Dias > 0 {
		desde := hoje.AddDate(0, 0, -filtro.Dias)
		repoFiltro.EmitidoDesde = &desde
		repoFiltro.EmitidoAte = &hoje
		aplicado.Desde = desde.Format(formatoDia)
	}

	ctes, err := s.repo.List(ctx, repoFiltro)
	if err != nil {
		return nil, FiltroAplicado{}, time.Time{}, fmt.Errorf("carregar ctes: %w", err)
	}
	return ctes, aplicado, hoje, nil
}

// GerarAnaliseCompleta calcula todos os blocos da análise sobre o mesmo recorte.
func (s *Service) GerarAnaliseCompleta(ctx context.Context, filtro Filtro) (AnaliseCompleta, error) {
	inicio := time.Now()
	if filtro.Dias == 0 {
		return AnaliseCompleta{}, fmt.Errorf("%w: dias é obrigatório", ErrFiltroInvalido)
	}

	ctes, aplicado, hoje, err := s.carregar(ctx, filtro)
	if err != nil {
		return AnaliseCompleta{}, err
	}

	desde := hoje.AddDate(0, 0, -filtro.Dias)
	mensal := CalcularReceitaMensal(ctes, desde, hoje)
	concentracao := CalcularConcentracao(ctes, TamanhoRanking)

	analise := AnaliseCompleta{
		Filtro:             aplicado,
		GeradoEm:           s.clock.Agora().UTC(),
		Resumo:             resumir(ctes, concentracao.TotalClientes),
		ReceitaMensal:      mensal,
		Concentracao:       concentracao,
		TicketMedio:        CalcularTicketMedio(ctes),
		TempoMedioCobranca: CalcularTempoCobranca(ctes),
		Tendencia:          CalcularTendencia(mensal.Meses),
		TesteEstresse:      CalcularEstresse(ctes),
		ReceitaPorInclusao: CalcularReceitaInclusao(ctes),
		Graficos:           MontarGraficos(mensal.Meses),
		Alertas:            alertas.Classificar(ctes, hoje),
		Variacoes:          variacao.Calcular(ctes),
	}

	elapsed := time.Since(inicio).Seconds()
	metrics.ObserveAnalise(elapsed)
	s.log.Info("analise gerada",
		"dias", filtro.Dias,
		"cliente", filtro.Cliente,
		"ctes", len(ctes),
		"elapsed_seconds", elapsed,
	)
	return analise, nil
}

func resumir(ctes []domain.CTe, clientes int) ResumoGeral {
	r := ResumoGeral{TotalCTes: len(ctes), TotalClientes: clientes}
	total := receitaTotal(ctes)
	aberto := total
	for _, c := range ctes {
		if c.HasBaixa() {
			r.CTesComBaixa++
			aberto = aberto.Sub(c.ValorTotal)
		}
		if c.ProcessoCompleto() {
			r.ProcessosCompletos++
		}
	}
	r.ReceitaTotal = paraFloat(total)
	r.ValorEmAberto = paraFloat(aberto)
	return r
}

// Alertas classifica as pendências do recorte na data de hoje.
func (s *Service) Alertas(ctx context.Context, filtro Filtro) (alertas.Relatorio, error) {
	ctes, _, hoje, err := s.carregar(ctx, filtro)
	if err != nil {
		return alertas.Relatorio{}, err
	}
	rel := alertas.Classificar(ctes, hoje)
	s.log.Info("alertas gerados", "ctes", len(ctes), "total_alertas", rel.TotalAlertas)
	return rel, nil
}

// Variacoes mede o tempo de cada etapa do processo no recorte.
func (s *Service) Variacoes(ctx context.Context, filtro Filtro) ([]variacao.Metrica, error) {
	ctes, _, _, err := s.carregar(ctx, filtro)
	if err != nil {
		return nil, err
	}
	return variacao.Calcular(ctes), nil
}
