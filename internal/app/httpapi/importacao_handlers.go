package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/ids"
)

// Folga para os cabeçalhos do multipart além do arquivo em si.
const margemMultipart = 1 << 20

type jobResposta struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *API) assincrono() bool {
	return a.deps.Fila != nil && a.deps.Resultados != nil && a.deps.NovoID != nil
}

func (a *API) importar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.deps.Limitador.Permitir(ctx, origemCliente(r)); err != nil {
		a.responderErro(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.deps.MaxUpload+margemMultipart)
	arquivo, cabecalho, err := r.FormFile("arquivo")
	if err != nil {
		a.responderErro(w, r, fmt.Errorf("%w: campo arquivo: %w", errRequisicao, err))
		return
	}
	defer arquivo.Close()

	conteudo, err := importacao.LerConteudo(arquivo, a.deps.MaxUpload)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	opcoes := importacao.Opcoes{Modo: r.FormValue("modo"), Origem: r.FormValue("origem")}
	if !importacao.ModoValido(opcoes.Modo) {
		a.responderErro(w, r, fmt.Errorf("%w: modo deve ser um de: inserir alterar upsert", errRequisicao))
		return
	}
	if v := r.FormValue("lote"); v != "" {
		lote, err := strconv.Atoi(v)
		if err != nil {
			a.responderErro(w, r, fmt.Errorf("%w: lote deve ser inteiro", errRequisicao))
			return
		}
		opcoes.TamanhoLote = lote
	}

	async, _ := strconv.ParseBool(r.FormValue("async"))
	if async && a.assincrono() {
		a.enfileirar(w, r, cabecalho.Filename, conteudo, opcoes)
		return
	}

	res, err := a.deps.Importador.Importar(ctx, cabecalho.Filename, conteudo, opcoes)
	if err != nil {
		status := statusDoErro(err)
		a.logger.Warn("importacao rejeitada", "arquivo", cabecalho.Filename, "status", status, "err", err)
		responderJSON(w, status, res)
		return
	}
	responderJSON(w, http.StatusOK, res)
}

func (a *API) enfileirar(w http.ResponseWriter, r *http.Request, nome string, conteudo []byte, opcoes importacao.Opcoes) {
	job := domain.JobImportacao{
		ID:            a.deps.NovoID(),
		NomeArquivo:   nome,
		Conteudo:      conteudo,
		Modo:          opcoes.Modo,
		Lote:          opcoes.TamanhoLote,
		Origem:        opcoes.Origem,
		EnfileiradoEm: a.deps.Clock.Agora().UTC(),
	}
	if err := a.deps.Fila.Publicar(r.Context(), job); err != nil {
		a.responderErro(w, r, err)
		return
	}

	a.logger.Info("importacao enfileirada", "job", job.ID, "arquivo", nome, "bytes", len(conteudo))
	responderJSON(w, http.StatusAccepted, jobResposta{ID: job.ID, Status: "pendente"})
}

// obterImportacao devolve o documento gravado pelo worker, ou pendente enquanto ele não existe.
func (a *API) obterImportacao(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !ids.Valido(id) {
		a.responderErro(w, r, fmt.Errorf("%w: id de importacao invalido", errRequisicao))
		return
	}
	if a.deps.Resultados == nil {
		a.responderErro(w, r, fmt.Errorf("importacao assincrona desabilitada: %w", domain.ErrNotFound))
		return
	}

	payload, err := a.deps.Resultados.Obter(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		responderJSON(w, http.StatusOK, jobResposta{ID: id, Status: "pendente"})
		return
	}
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
