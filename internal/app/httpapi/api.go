// Pacote httpapi expõe os handlers REST do ciclo de vida dos CT-es, da importação e das análises.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marcelojr/gestao-ctes/internal/app/alertas"
	"github.com/marcelojr/gestao-ctes/internal/app/analitico"
	"github.com/marcelojr/gestao-ctes/internal/app/ctes"
	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/app/variacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/metrics"
	"github.com/marcelojr/gestao-ctes/internal/platform/ratelimit"
	"github.com/marcelojr/gestao-ctes/internal/platform/validacao"
)

type CTeService interface {
	Criar(ctx context.Context, dados map[string]any) (domain.CTe, error)
	Atualizar(ctx context.Context, id domain.CTeID, dados map[string]any) (domain.CTe, error)
	RegistrarBaixa(ctx context.Context, id domain.CTeID, data time.Time, nota string) (domain.CTe, error)
	BuscarPorNumero(ctx context.Context, numero int64) (domain.CTe, error)
	Excluir(ctx context.Context, id domain.CTeID) error
}

type Importador interface {
	Importar(ctx context.Context, nome string, conteudo []byte, opcoes importacao.Opcoes) (importacao.Resultado, error)
}

type Analitico interface {
	GerarAnaliseCompleta(ctx context.Context, filtro analitico.Filtro) (analitico.AnaliseCompleta, error)
	Alertas(ctx context.Context, filtro analitico.Filtro) (alertas.Relatorio, error)
	Variacoes(ctx context.Context, filtro analitico.Filtro) ([]variacao.Metrica, error)
}

// Dependencias reúne o que a API usa. Fila e Resultados nil desligam a importação assíncrona;
// Limitador nil desliga o rate limit.
type Dependencias struct {
	CTes       CTeService
	Importador Importador
	Analitico  Analitico
	Fila       domain.FilaImportacao
	Resultados domain.ResultadoStore
	Limitador  domain.LimitadorEnvio
	NovoID     func() string
	Clock      domain.Clock
	MaxUpload  int64
	Logger     *slog.Logger
}

type API struct {
	deps   Dependencias
	logger *slog.Logger
}

func New(deps Dependencias) *API {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Limitador == nil {
		deps.Limitador = ratelimit.NewNoop()
	}
	if deps.MaxUpload <= 0 {
		deps.MaxUpload = 50 << 20
	}
	return &API{deps: deps, logger: deps.Logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /ctes", a.criarCTe)
	mux.HandleFunc("GET /ctes/{numero}", a.buscarCTe)
	mux.HandleFunc("PATCH /ctes/{id}", a.atualizarCTe)
	mux.HandleFunc("DELETE /ctes/{id}", a.excluirCTe)
	mux.HandleFunc("POST /ctes/{id}/baixa", a.registrarBaixa)
	mux.HandleFunc("POST /importacoes", a.importar)
	mux.HandleFunc("GET /importacoes/{id}", a.obterImportacao)
	mux.HandleFunc("GET /analises", a.analise)
	mux.HandleFunc("GET /alertas", a.alertas)
	mux.HandleFunc("GET /variacoes", a.variacoes)
}

type respostaErro struct {
	Erro     string   `json:"erro"`
	Detalhes []string `json:"detalhes,omitempty"`
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusDoErro(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ctes.ErrCTeNaoEncontrado), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ctes.ErrCTeDuplicado), errors.Is(err, ctes.ErrBaixaJaRegistrada):
		return http.StatusConflict
	case errors.Is(err, importacao.ErrArquivoGrande), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ratelimit.ErrLimiteExcedido):
		return http.StatusTooManyRequests
	case errors.Is(err, ctes.ErrCTeInvalido),
		errors.Is(err, domain.ErrInvalido),
		errors.Is(err, validacao.ErrRequisicaoInvalida),
		errors.Is(err, analitico.ErrFiltroInvalido),
		errors.Is(err, importacao.ErrExtensaoNaoSuportada),
		errors.Is(err, importacao.ErrDecodificacao),
		errors.Is(err, importacao.ErrLeitura),
		errors.Is(err, importacao.ErrArquivoVazio),
		errors.Is(err, importacao.ErrColunasObrigatorias),
		errors.Is(err, errRequisicao):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// responderErro não expõe detalhes de falhas internas; elas só vão para o log.
func (a *API) responderErro(w http.ResponseWriter, r *http.Request, err error) {
	status := statusDoErro(err)
	corpo := respostaErro{Erro: err.Error()}

	var ev *domain.ErroValidacao
	if errors.As(err, &ev) {
		corpo.Detalhes = ev.Mensagens
	}
	var vr *validacao.Erro
	if errors.As(err, &vr) {
		corpo.Detalhes = vr.Mensagens
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("erro interno", "metodo", r.Method, "rota", r.URL.Path, "err", err)
		corpo = respostaErro{Erro: "erro interno"}
	} else {
		a.logger.Warn("requisicao rejeitada", "metodo", r.Method, "rota", r.URL.Path, "status", status, "err", err)
	}
	responderJSON(w, status, corpo)
}

var errRequisicao = errors.New("requisicao invalida")

func parametroID(r *http.Request, nome string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(nome), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s deve ser um inteiro positivo", errRequisicao, nome)
	}
	return v, nil
}

// origemCliente identifica quem envia o arquivo para o rate limit.
func origemCliente(r *http.Request) string {
	ip := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
	}
	return ip + "|" + r.UserAgent()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Instrumentar conta cada requisição pela rota registrada no mux e pelo status devolvido.
func Instrumentar(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		rota := r.Pattern
		if rota == "" {
			rota = "desconhecida"
		}
		metrics.ObserveHTTPRequest(rota, strconv.Itoa(rec.status))
	})
}
