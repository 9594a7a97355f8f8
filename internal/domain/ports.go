package domain

import (
	"context"
	"time"
)

type CTeRepository interface {
	Create(ctx context.Context, c *CTe) error
	// Update grava somente as colunas informadas, além de updated_at.
	Update(ctx context.Context, c CTe, colunas []string) error
	Delete(ctx context.Context, id CTeID) error
	FindByID(ctx context.Context, id CTeID) (CTe, error)
	FindByNumero(ctx context.Context, numero int64) (CTe, error)
	NumerosExistentes(ctx context.Context, numeros []int64) (map[int64]struct{}, error)
	FindByNumeros(ctx context.Context, numeros []int64) (map[int64]CTe, error)
	List(ctx context.Context, filtro FiltroCTe) ([]CTe, error)
	// WithinTx executa fn dentro de uma transação; o repositório recebido só vale ali dentro.
	WithinTx(ctx context.Context, fn func(repo CTeRepository) error) error
}

// JobImportacao é a unidade de trabalho da importação assíncrona.
type JobImportacao struct {
	ID            string    `json:"id"`
	NomeArquivo   string    `json:"nome_arquivo"`
	Conteudo      []byte    `json:"conteudo"`
	Modo          string    `json:"modo"`
	Lote          int       `json:"lote,omitempty"`
	Origem        string    `json:"origem,omitempty"`
	EnfileiradoEm time.Time `json:"enfileirado_em"`
}

type FilaImportacao interface {
	Publicar(ctx context.Context, job JobImportacao) error
	Consumir(ctx context.Context, handler func(context.Context, JobImportacao) error) error
}

// ResultadoStore guarda o resultado serializado de uma importação assíncrona.
type ResultadoStore interface {
	Salvar(ctx context.Context, id string, payload []byte) error
	Obter(ctx context.Context, id string) ([]byte, error)
}

type LimitadorEnvio interface {
	Permitir(ctx context.Context, chave string) error
}

type Clock interface {
	Agora() time.Time
}
