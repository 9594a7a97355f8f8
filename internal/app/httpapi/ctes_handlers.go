package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/conversao"
)

const limiteCorpoJSON = 1 << 20

// decodificarObjeto preserva números como json.Number para não perder centavos.
func decodificarObjeto(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limiteCorpoJSON))
	dec.UseNumber()

	var dados map[string]any
	if err := dec.Decode(&dados); err != nil {
		return nil, fmt.Errorf("%w: payload invalido: %w", errRequisicao, err)
	}
	if dados == nil {
		return nil, fmt.Errorf("%w: payload deve ser um objeto", errRequisicao)
	}
	return dados, nil
}

func (a *API) criarCTe(w http.ResponseWriter, r *http.Request) {
	dados, err := decodificarObjeto(w, r)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	c, err := a.deps.CTes.Criar(r.Context(), dados)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusCreated, c.ParaMapa())
}

func (a *API) buscarCTe(w http.ResponseWriter, r *http.Request) {
	numero, err := parametroID(r, "numero")
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	c, err := a.deps.CTes.BuscarPorNumero(r.Context(), numero)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, c.ParaMapa())
}

func (a *API) atualizarCTe(w http.ResponseWriter, r *http.Request) {
	id, err := parametroID(r, "id")
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	dados, err := decodificarObjeto(w, r)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	c, err := a.deps.CTes.Atualizar(r.Context(), domain.CTeID(id), dados)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, c.ParaMapa())
}

func (a *API) excluirCTe(w http.ResponseWriter, r *http.Request) {
	id, err := parametroID(r, "id")
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	if err := a.deps.CTes.Excluir(r.Context(), domain.CTeID(id)); err != nil {
		a.responderErro(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type baixaRequest struct {
	Data       string `json:"data"`
	Observacao string `json:"observacao"`
}

// registrarBaixa usa a data de hoje quando o corpo não informa data.
func (a *API) registrarBaixa(w http.ResponseWriter, r *http.Request) {
	id, err := parametroID(r, "id")
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	var req baixaRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limiteCorpoJSON)).Decode(&req); err != nil {
			a.responderErro(w, r, fmt.Errorf("%w: payload invalido: %w", errRequisicao, err))
			return
		}
	}

	data, err := conversao.ParseData(req.Data)
	if err != nil {
		a.responderErro(w, r, fmt.Errorf("%w: data: %w", errRequisicao, err))
		return
	}
	quando := a.deps.Clock.Agora()
	if data != nil {
		quando = *data
	}

	c, err := a.deps.CTes.RegistrarBaixa(r.Context(), domain.CTeID(id), quando, req.Observacao)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, c.ParaMapa())
}
