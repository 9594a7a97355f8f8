package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

// Limite de parâmetros por cláusula IN para caber no Postgres e no SQLite.
const tamanhoBlocoIN = 500

// CTeRepository mapeia CT-es para a tabela ctes.
type CTeRepository struct {
	db *gorm.DB
}

func NewCTeRepository(db *gorm.DB) *CTeRepository {
	return &CTeRepository{db: db}
}

type cteModel struct {
	ID                 uint            `gorm:"column:id;primaryKey"`
	NumeroCTe          int64           `gorm:"column:numero_cte"`
	DestinatarioNome   string          `gorm:"column:destinatario_nome"`
	VeiculoPlaca       *string         `gorm:"column:veiculo_placa"`
	ValorTotal         decimal.Decimal `gorm:"column:valor_total"`
	DataEmissao        *time.Time      `gorm:"column:data_emissao"`
	DataInclusaoFatura *time.Time      `gorm:"column:data_inclusao_fatura"`
	NumeroFatura       *string         `gorm:"column:numero_fatura"`
	DataEnvioProcesso  *time.Time      `gorm:"column:data_envio_processo"`
	PrimeiroEnvio      *time.Time      `gorm:"column:primeiro_envio"`
	DataRqTmc          *time.Time      `gorm:"column:data_rq_tmc"`
	DataAtesto         *time.Time      `gorm:"column:data_atesto"`
	EnvioFinal         *time.Time      `gorm:"column:envio_final"`
	DataBaixa          *time.Time      `gorm:"column:data_baixa"`
	Observacao         *string         `gorm:"column:observacao"`
	OrigemDados        string          `gorm:"column:origem_dados"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
}

func (cteModel) TableName() string {
	return "ctes"
}

func (m cteModel) toDomain() domain.CTe {
	return domain.CTe{
		ID:                 domain.CTeID(m.ID),
		NumeroCTe:          m.NumeroCTe,
		DestinatarioNome:   m.DestinatarioNome,
		VeiculoPlaca:       m.VeiculoPlaca,
		ValorTotal:         m.ValorTotal,
		DataEmissao:        dataUTC(m.DataEmissao),
		DataInclusaoFatura: dataUTC(m.DataInclusaoFatura),
		NumeroFatura:       m.NumeroFatura,
		DataEnvioProcesso:  dataUTC(m.DataEnvioProcesso),
		PrimeiroEnvio:      dataUTC(m.PrimeiroEnvio),
		DataRqTmc:          dataUTC(m.DataRqTmc),
		DataAtesto:         dataUTC(m.DataAtesto),
		EnvioFinal:         dataUTC(m.EnvioFinal),
		DataBaixa:          dataUTC(m.DataBaixa),
		Observacao:         m.Observacao,
		OrigemDados:        m.OrigemDados,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func fromDomainCTe(c domain.CTe) cteModel {
	return cteModel{
		ID:                 uint(c.ID),
		NumeroCTe:          c.NumeroCTe,
		DestinatarioNome:   c.DestinatarioNome,
		VeiculoPlaca:       c.VeiculoPlaca,
		ValorTotal:         c.ValorTotal.Round(2),
		DataEmissao:        c.DataEmissao,
		DataInclusaoFatura: c.DataInclusaoFatura,
		NumeroFatura:       c.NumeroFatura,
		DataEnvioProcesso:  c.DataEnvioProcesso,
		PrimeiroEnvio:      c.PrimeiroEnvio,
		DataRqTmc:          c.DataRqTmc,
		DataAtesto:         c.DataAtesto,
		EnvioFinal:         c.EnvioFinal,
		DataBaixa:          c.DataBaixa,
		Observacao:         c.Observacao,
		OrigemDados:        c.OrigemDados,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// Colunas DATE voltam do driver com fuso local; o domínio trabalha com meia-noite UTC.
func dataUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Dia(*t)
	return &d
}

// Create usa uma transação aninhada: dentro de WithinTx vira SAVEPOINT e uma falha
// nesta linha não invalida as demais do lote.
func (r *CTeRepository) Create(ctx context.Context, c *domain.CTe) error {
	model := fromDomainCTe(*c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		if isDuplicado(err) {
			return fmt.Errorf("gorm ctes: inserir %d: %w", c.NumeroCTe, domain.ErrDuplicado)
		}
		return fmt.Errorf("gorm ctes: inserir %d: %w", c.NumeroCTe, err)
	}
	c.ID = domain.CTeID(model.ID)
	return nil
}

func (r *CTeRepository) Update(ctx context.Context, c domain.CTe, colunas []string) error {
	if c.ID == 0 {
		return fmt.Errorf("gorm ctes: atualizar sem id")
	}
	model := fromDomainCTe(c)
	selecionadas := append(append([]string(nil), colunas...), "updated_at")

	var linhas int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&cteModel{ID: model.ID}).Select(selecionadas).Updates(&model)
		linhas = res.RowsAffected
		return res.Error
	})
	if err != nil {
		if isDuplicado(err) {
			return fmt.Errorf("gorm ctes: atualizar %d: %w", c.ID, domain.ErrDuplicado)
		}
		return fmt.Errorf("gorm ctes: atualizar %d: %w", c.ID, err)
	}
	if linhas == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CTeRepository) Delete(ctx context.Context, id domain.CTeID) error {
	res := r.db.WithContext(ctx).Delete(&cteModel{}, uint(id))
	if res.Error != nil {
		return fmt.Errorf("gorm ctes: remover %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CTeRepository) FindByID(ctx context.Context, id domain.CTeID) (domain.CTe, error) {
	return r.first(ctx, "id = ?", uint(id))
}

func (r *CTeRepository) FindByNumero(ctx context.Context, numero int64) (domain.CTe, error) {
	return r.first(ctx, "numero_cte = ?", numero)
}

func (r *CTeRepository) first(ctx context.Context, query string, arg any) (domain.CTe, error) {
	var model cteModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CTe{}, domain.ErrNotFound
		}
		return domain.CTe{}, fmt.Errorf("gorm ctes: buscar: %w", err)
	}
	return model.toDomain(), nil
}

// NumerosExistentes responde em uma consulta por bloco quais números já estão gravados.
func (r *CTeRepository) NumerosExistentes(ctx context.Context, numeros []int64) (map[int64]struct{}, error) {
	existentes := make(map[int64]struct{}, len(numeros))
	for _, bloco := range blocos(numeros) {
		var encontrados []int64
		if err := r.db.WithContext(ctx).
			Model(&cteModel{}).
			Where("numero_cte IN ?", bloco).
			Pluck("numero_cte", &encontrados).Error; err != nil {
			return nil, fmt.Errorf("gorm ctes: numeros existentes: %w", err)
		}
		for _, n := range encontrados {
			existentes[n] = struct{}{}
		}
	}
	return existentes, nil
}

func (r *CTeRepository) FindByNumeros(ctx context.Context, numeros []int64) (map[int64]domain.CTe, error) {
	resultado := make(map[int64]domain.CTe, len(numeros))
	for _, bloco := range blocos(numeros) {
		var models []cteModel
		if err := r.db.WithContext(ctx).Where("numero_cte IN ?", bloco).Find(&models).Error; err != nil {
			return nil, fmt.Errorf("gorm ctes: buscar numeros: %w", err)
		}
		for _, m := range models {
			resultado[m.NumeroCTe] = m.toDomain()
		}
	}
	return resultado, nil
}

func (r *CTeRepository) List(ctx context.Context, filtro domain.FiltroCTe) ([]domain.CTe, error) {
	q := r.db.WithContext(ctx).Model(&cteModel{})
	if filtro.EmitidoDesde != nil {
		q = q.Where("data_emissao >= ?", *filtro.EmitidoDesde)
	}
	if filtro.EmitidoAte != nil {
		q = q.Where("data_emissao <= ?", *filtro.EmitidoAte)
	}
	if cliente := strings.TrimSpace(filtro.Cliente); cliente != "" {
		q = q.Where("LOWER(destinatario_nome) LIKE ?", "%"+strings.ToLower(cliente)+"%")
	}

	var models []cteModel
	if err := q.Order("data_emissao ASC").Order("numero_cte ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm ctes: listar: %w", err)
	}

	result := make([]domain.CTe, len(models))
	for i, m := range models {
		result[i] = m.toDomain()
	}
	return result, nil
}

func (r *CTeRepository) WithinTx(ctx context.Context, fn func(repo domain.CTeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CTeRepository{db: tx})
	})
}

func blocos(numeros []int64) [][]int64 {
	var out [][]int64
	for inicio := 0; inicio < len(numeros); inicio += tamanhoBlocoIN {
		fim := inicio + tamanhoBlocoIN
		if fim > len(numeros) {
			fim = len(numeros)
		}
		out = append(out, numeros[inicio:fim])
	}
	return out
}

// isDuplicado cobre o erro traduzido pelo GORM e as mensagens cruas dos drivers.
func isDuplicado(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

var _ domain.CTeRepository = (*CTeRepository)(nil)
