package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/marcelojr/gestao-ctes/internal/app/analitico"
)

// Janela padrão da análise completa quando a query não traz dias.
const diasPadraoAnalise = 365

func filtroDaQuery(r *http.Request, diasPadrao int) (analitico.Filtro, error) {
	q := r.URL.Query()
	filtro := analitico.Filtro{Dias: diasPadrao, Cliente: q.Get("cliente")}
	if v := q.Get("dias"); v != "" {
		dias, err := strconv.Atoi(v)
		if err != nil {
			return analitico.Filtro{}, fmt.Errorf("%w: dias deve ser inteiro", analitico.ErrFiltroInvalido)
		}
		filtro.Dias = dias
	}
	return filtro, nil
}

func (a *API) analise(w http.ResponseWriter, r *http.Request) {
	filtro, err := filtroDaQuery(r, diasPadraoAnalise)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	analise, err := a.deps.Analitico.GerarAnaliseCompleta(r.Context(), filtro)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, analise)
}

// Sem dias, alertas e variações consideram a base inteira.
func (a *API) alertas(w http.ResponseWriter, r *http.Request) {
	filtro, err := filtroDaQuery(r, 0)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	rel, err := a.deps.Analitico.Alertas(r.Context(), filtro)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, rel)
}

func (a *API) variacoes(w http.ResponseWriter, r *http.Request) {
	filtro, err := filtroDaQuery(r, 0)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}

	metricas, err := a.deps.Analitico.Variacoes(r.Context(), filtro)
	if err != nil {
		a.responderErro(w, r, err)
		return
	}
	responderJSON(w, http.StatusOK, map[string]any{"etapas": metricas})
}
