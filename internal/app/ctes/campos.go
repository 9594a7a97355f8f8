package ctes

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/conversao"
)

// Campos canônicos aceitos em criação e atualização. Chaves fora desta lista são ignoradas.
const (
	CampoNumeroCTe          = "numero_cte"
	CampoDestinatarioNome   = "destinatario_nome"
	CampoVeiculoPlaca       = "veiculo_placa"
	CampoValorTotal         = "valor_total"
	CampoDataEmissao        = "data_emissao"
	CampoDataInclusaoFatura = "data_inclusao_fatura"
	CampoNumeroFatura       = "numero_fatura"
	CampoDataEnvioProcesso  = "data_envio_processo"
	CampoPrimeiroEnvio      = "primeiro_envio"
	CampoDataRqTmc          = "data_rq_tmc"
	CampoDataAtesto         = "data_atesto"
	CampoEnvioFinal         = "envio_final"
	CampoDataBaixa          = "data_baixa"
	CampoObservacao         = "observacao"
	CampoOrigemDados        = "origem_dados"
)

// CamposReconhecidos na ordem das colunas da tabela.
var CamposReconhecidos = []string{
	CampoNumeroCTe,
	CampoDestinatarioNome,
	CampoVeiculoPlaca,
	CampoValorTotal,
	CampoDataEmissao,
	CampoDataInclusaoFatura,
	CampoNumeroFatura,
	CampoDataEnvioProcesso,
	CampoPrimeiroEnvio,
	CampoDataRqTmc,
	CampoDataAtesto,
	CampoEnvioFinal,
	CampoDataBaixa,
	CampoObservacao,
	CampoOrigemDados,
}

// CamposObrigatorios precisam estar presentes para um CT-e novo.
var CamposObrigatorios = []string{CampoNumeroCTe, CampoDestinatarioNome, CampoValorTotal}

const MsgValorObrigatorio = "valor total é obrigatório"

func campoData(c *domain.CTe, campo string) **time.Time {
	switch campo {
	case CampoDataEmissao:
		return &c.DataEmissao
	case CampoDataInclusaoFatura:
		return &c.DataInclusaoFatura
	case CampoDataEnvioProcesso:
		return &c.DataEnvioProcesso
	case CampoPrimeiroEnvio:
		return &c.PrimeiroEnvio
	case CampoDataRqTmc:
		return &c.DataRqTmc
	case CampoDataAtesto:
		return &c.DataAtesto
	case CampoEnvioFinal:
		return &c.EnvioFinal
	case CampoDataBaixa:
		return &c.DataBaixa
	}
	return nil
}

func campoTexto(c *domain.CTe, campo string) **string {
	switch campo {
	case CampoVeiculoPlaca:
		return &c.VeiculoPlaca
	case CampoNumeroFatura:
		return &c.NumeroFatura
	case CampoObservacao:
		return &c.Observacao
	}
	return nil
}

// Aplicar copia para c os campos reconhecidos de dados, convertendo strings, números JSON e datas.
// Devolve as colunas tocadas e as mensagens de conversão; chaves desconhecidas são ignoradas.
func Aplicar(c *domain.CTe, dados map[string]any) ([]string, []string) {
	var colunas, erros []string
	for _, campo := range CamposReconhecidos {
		valor, ok := dados[campo]
		if !ok {
			continue
		}
		if err := aplicarCampo(c, campo, valor); err != nil {
			erros = append(erros, fmt.Sprintf("%s: %v", campo, err))
			continue
		}
		colunas = append(colunas, campo)
	}
	return colunas, erros
}

func aplicarCampo(c *domain.CTe, campo string, valor any) error {
	if destino := campoData(c, campo); destino != nil {
		d, err := paraData(valor)
		if err != nil {
			return err
		}
		*destino = d
		return nil
	}
	if destino := campoTexto(c, campo); destino != nil {
		*destino = paraTexto(valor)
		return nil
	}

	switch campo {
	case CampoNumeroCTe:
		n, err := paraNumero(valor)
		if err != nil {
			return err
		}
		c.NumeroCTe = n
	case CampoDestinatarioNome:
		if t := paraTexto(valor); t != nil {
			c.DestinatarioNome = *t
		} else {
			c.DestinatarioNome = ""
		}
	case CampoValorTotal:
		v, err := paraMoeda(valor)
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("%s", MsgValorObrigatorio)
		}
		c.ValorTotal = *v
	case CampoOrigemDados:
		if t := paraTexto(valor); t != nil {
			c.OrigemDados = *t
		}
	}
	return nil
}

func paraTexto(valor any) *string {
	switch v := valor.(type) {
	case nil:
		return nil
	case string:
		return conversao.Texto(v)
	case *string:
		if v == nil {
			return nil
		}
		return conversao.Texto(*v)
	case float64:
		return conversao.Texto(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return conversao.Texto(fmt.Sprint(v))
	}
}

func paraData(valor any) (*time.Time, error) {
	switch v := valor.(type) {
	case nil:
		return nil, nil
	case string:
		return conversao.ParseData(v)
	case time.Time:
		d := domain.Dia(v)
		return &d, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		d := domain.Dia(*v)
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: tipo %T", conversao.ErrDataInvalida, valor)
	}
}

func paraMoeda(valor any) (*decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := valor.(type) {
	case nil:
		return nil, nil
	case string:
		return conversao.ParseMoeda(v)
	case json.Number:
		return conversao.ParseMoeda(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, conversao.ErrValorInvalido
		}
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case decimal.Decimal:
		d = v
	default:
		return nil, fmt.Errorf("%w: tipo %T", conversao.ErrValorInvalido, valor)
	}
	d = d.Round(2)
	return &d, nil
}

func paraNumero(valor any) (int64, error) {
	switch v := valor.(type) {
	case string:
		return conversao.ParseNumero(v)
	case json.Number:
		return conversao.ParseNumero(v.String())
	case float64:
		if v != math.Trunc(v) || v <= 0 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v", conversao.ErrNumeroInvalido, v)
		}
		return int64(v), nil
	case int:
		return paraNumero(int64(v))
	case int64:
		if v <= 0 {
			return 0, fmt.Errorf("%w: %d", conversao.ErrNumeroInvalido, v)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: tipo %T", conversao.ErrNumeroInvalido, valor)
	}
}

// CamposFaltantes lista obrigatórios ausentes ou em branco em dados.
func CamposFaltantes(dados map[string]any) []string {
	var faltantes []string
	for _, campo := range CamposObrigatorios {
		v, ok := dados[campo]
		if !ok || v == nil {
			faltantes = append(faltantes, campo)
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			faltantes = append(faltantes, campo)
		}
	}
	return faltantes
}
