package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CTeID uint

// Origens mais comuns de um registro; o campo aceita qualquer texto não vazio.
const (
	OrigemSistema      = "Sistema"
	OrigemManual       = "Manual"
	OrigemImportacao   = "Importação CSV"
	OrigemPlanilha     = "Importação Planilha"
	OrigemAtualizacao  = "Atualização em Lote"
	ValorMaximoPadrao  = 1_000_000
	TamanhoMaxFatura   = 50
	TamanhoMinCliente  = 3
	TamanhoMinPlaca    = 7
	TamanhoMaxPlaca    = 8
	formatoDataCanonic = "2006-01-02"
)

// CTe é o conhecimento de transporte acompanhado do início da emissão até a baixa.
type CTe struct {
	ID                 CTeID           `gorm:"column:id;primaryKey;autoIncrement"`
	NumeroCTe          int64           `gorm:"column:numero_cte;not null;uniqueIndex:idx_ctes_numero_cte"`
	DestinatarioNome   string          `gorm:"column:destinatario_nome;type:varchar(255);not null;index:idx_ctes_destinatario"`
	VeiculoPlaca       *string         `gorm:"column:veiculo_placa;type:varchar(8)"`
	ValorTotal         decimal.Decimal `gorm:"column:valor_total;type:numeric(15,2);not null;default:0"`
	DataEmissao        *time.Time      `gorm:"column:data_emissao;type:date;index:idx_ctes_data_emissao"`
	DataInclusaoFatura *time.Time      `gorm:"column:data_inclusao_fatura;type:date"`
	NumeroFatura       *string         `gorm:"column:numero_fatura;type:varchar(50)"`
	DataEnvioProcesso  *time.Time      `gorm:"column:data_envio_processo;type:date"`
	PrimeiroEnvio      *time.Time      `gorm:"column:primeiro_envio;type:date"`
	DataRqTmc          *time.Time      `gorm:"column:data_rq_tmc;type:date"`
	DataAtesto         *time.Time      `gorm:"column:data_atesto;type:date"`
	EnvioFinal         *time.Time      `gorm:"column:envio_final;type:date"`
	DataBaixa          *time.Time      `gorm:"column:data_baixa;type:date"`
	Observacao         *string         `gorm:"column:observacao;type:text"`
	OrigemDados        string          `gorm:"column:origem_dados;type:varchar(50);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CTe) TableName() string { return "ctes" }

// FiltroCTe restringe a leitura usada pelas análises.
type FiltroCTe struct {
	EmitidoDesde *time.Time
	EmitidoAte   *time.Time
	Cliente      string
}

// ParaMapa serializa o CT-e com as chaves canônicas e as propriedades derivadas.
func (c CTe) ParaMapa() map[string]any {
	m := map[string]any{
		"id":                   uint(c.ID),
		"numero_cte":           c.NumeroCTe,
		"destinatario_nome":    c.DestinatarioNome,
		"veiculo_placa":        textoOuNil(c.VeiculoPlaca),
		"valor_total":          c.ValorTotal.StringFixed(2),
		"data_emissao":         dataOuNil(c.DataEmissao),
		"data_inclusao_fatura": dataOuNil(c.DataInclusaoFatura),
		"numero_fatura":        textoOuNil(c.NumeroFatura),
		"data_envio_processo":  dataOuNil(c.DataEnvioProcesso),
		"primeiro_envio":       dataOuNil(c.PrimeiroEnvio),
		"data_rq_tmc":          dataOuNil(c.DataRqTmc),
		"data_atesto":          dataOuNil(c.DataAtesto),
		"envio_final":          dataOuNil(c.EnvioFinal),
		"data_baixa":           dataOuNil(c.DataBaixa),
		"observacao":           textoOuNil(c.Observacao),
		"origem_dados":         c.OrigemDados,
		"status_processo":      string(c.StatusProcesso()),
		"has_baixa":            c.HasBaixa(),
		"processo_completo":    c.ProcessoCompleto(),
	}
	if !c.CreatedAt.IsZero() {
		m["created_at"] = c.CreatedAt.Format(time.RFC3339)
	}
	if !c.UpdatedAt.IsZero() {
		m["updated_at"] = c.UpdatedAt.Format(time.RFC3339)
	}
	return m
}

// Dia trunca o instante para a data civil, representada à meia-noite UTC como no banco.
func Dia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DiasEntre devolve fim - inicio em dias inteiros.
func DiasEntre(inicio, fim time.Time) int {
	return int(Dia(fim).Sub(Dia(inicio)).Hours() / 24)
}

func dataOuNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(formatoDataCanonic)
}

func textoOuNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
