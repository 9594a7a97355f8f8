package importacao

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/marcelojr/gestao-ctes/internal/app/ctes"
)

var ErrColunasObrigatorias = errors.New("colunas obrigatorias ausentes")

// aliases lista, por campo canônico, os cabeçalhos aceitos já normalizados.
var aliases = map[string][]string{
	ctes.CampoNumeroCTe: {
		"numero_cte", "cte", "n_cte", "no_cte", "num_cte", "nro_cte", "numero_do_cte", "numero", "ct_e", "numero_ct_e",
	},
	ctes.CampoDestinatarioNome: {
		"destinatario_nome", "destinatario", "nome_destinatario", "cliente", "nome_cliente", "razao_social", "tomador",
	},
	ctes.CampoVeiculoPlaca: {
		"veiculo_placa", "placa", "placa_veiculo", "veiculo",
	},
	ctes.CampoValorTotal: {
		"valor_total", "valor", "valor_cte", "vlr_total", "valor_frete", "total", "valor_total_cte", "valor_total_r",
	},
	ctes.CampoDataEmissao: {
		"data_emissao", "emissao", "dt_emissao", "data_de_emissao",
	},
	ctes.CampoDataInclusaoFatura: {
		"data_inclusao_fatura", "inclusao_fatura", "data_inclusao", "dt_inclusao_fatura", "data_de_inclusao_da_fatura",
	},
	ctes.CampoNumeroFatura: {
		"numero_fatura", "fatura", "n_fatura", "no_fatura", "num_fatura", "nro_fatura",
	},
	ctes.CampoDataEnvioProcesso: {
		"data_envio_processo", "envio_processo", "dt_envio_processo", "data_de_envio_do_processo",
	},
	ctes.CampoPrimeiroEnvio: {
		"primeiro_envio", "data_primeiro_envio", "1_envio", "1o_envio", "dt_primeiro_envio",
	},
	ctes.CampoDataRqTmc: {
		"data_rq_tmc", "rq_tmc", "data_rq", "dt_rq_tmc", "rq_e_tmc",
	},
	ctes.CampoDataAtesto: {
		"data_atesto", "atesto", "dt_atesto", "data_do_atesto",
	},
	ctes.CampoEnvioFinal: {
		"envio_final", "data_envio_final", "dt_envio_final",
	},
	ctes.CampoDataBaixa: {
		"data_baixa", "baixa", "dt_baixa", "data_pagamento", "pagamento", "data_da_baixa",
	},
	ctes.CampoObservacao: {
		"observacao", "observacoes", "obs",
	},
}

// indiceAlias é o inverso de aliases.
var indiceAlias = func() map[string]string {
	m := make(map[string]string)
	for campo, lista := range aliases {
		for _, a := range lista {
			m[a] = campo
		}
	}
	return m
}()

var naoAlfanumerico = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizarCabecalho remove acentos, baixa a caixa e troca pontuação e espaços por "_".
func NormalizarCabecalho(s string) string {
	t := transform.Chain(norm.NFKD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	resultado, _, _ := transform.String(t, s)
	resultado = strings.ToLower(strings.TrimSpace(resultado))
	resultado = naoAlfanumerico.ReplaceAllString(resultado, "_")
	return strings.Trim(resultado, "_")
}

// Mapeamento indica a coluna de origem de cada campo canônico.
type Mapeamento struct {
	Indices   map[string]int
	Ignoradas []string
}

// MapearColunas associa cabeçalhos a campos; o primeiro cabeçalho de cada campo vence
// e colunas desconhecidas são descartadas.
func MapearColunas(cabecalho []string) (Mapeamento, error) {
	m := Mapeamento{Indices: make(map[string]int)}
	var livres []string

	for i, bruto := range cabecalho {
		chave := NormalizarCabecalho(bruto)
		campo, ok := indiceAlias[chave]
		if !ok {
			if chave != "" {
				m.Ignoradas = append(m.Ignoradas, bruto)
				livres = append(livres, chave)
			}
			continue
		}
		if _, jaMapeado := m.Indices[campo]; jaMapeado {
			m.Ignoradas = append(m.Ignoradas, bruto)
			continue
		}
		m.Indices[campo] = i
	}

	var faltantes []string
	for _, campo := range ctes.CamposObrigatorios {
		if _, ok := m.Indices[campo]; !ok {
			faltantes = append(faltantes, campo)
		}
	}
	if len(faltantes) > 0 {
		return m, fmt.Errorf("%w: %s", ErrColunasObrigatorias, descreverFaltantes(faltantes, livres))
	}
	return m, nil
}

// descreverFaltantes sugere, entre as colunas ignoradas, a mais parecida com cada campo ausente.
func descreverFaltantes(faltantes, livres []string) string {
	var cm *closestmatch.ClosestMatch
	if len(livres) > 0 {
		cm = closestmatch.New(livres, []int{2, 3})
	}
	partes := make([]string, 0, len(faltantes))
	for _, campo := range faltantes {
		parte := campo
		if cm != nil {
			if sugestao := cm.Closest(campo); sugestao != "" {
				parte = fmt.Sprintf("%s (coluna parecida: %q)", campo, sugestao)
			}
		}
		partes = append(partes, parte)
	}
	return strings.Join(partes, ", ")
}
