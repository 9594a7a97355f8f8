package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/clock"
)

type mockImportador struct {
	mock.Mock
}

func (m *mockImportador) Importar(ctx context.Context, nome string, conteudo []byte, opcoes importacao.Opcoes) (importacao.Resultado, error) {
	args := m.Called(ctx, nome, conteudo, opcoes)
	return args.Get(0).(importacao.Resultado), args.Error(1)
}

type memStore struct {
	dados map[string][]byte
	err   error
}

func (m *memStore) Salvar(_ context.Context, id string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.dados[id] = payload
	return nil
}

func (m *memStore) Obter(_ context.Context, id string) ([]byte, error) {
	p, ok := m.dados[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

var agora = time.Date(2025, 2, 1, 10, 0, 30, 0, time.UTC)

func novoProcessor(imp Importador, store domain.ResultadoStore) *ImportProcessor {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImportProcessor(imp, store, clock.Fixed{Instante: agora}, log)
}

func job() domain.JobImportacao {
	return domain.JobImportacao{
		ID:            "01JJ0000000000000000000000",
		NomeArquivo:   "ctes.csv",
		Conteudo:      []byte("conteudo"),
		Modo:          importacao.ModoUpsert,
		Lote:          100,
		EnfileiradoEm: agora.Add(-30 * time.Second),
	}
}

func lerSituacao(t *testing.T, store *memStore, id string) Situacao {
	payload, err := store.Obter(context.Background(), id)
	require.NoError(t, err)
	var s Situacao
	require.NoError(t, json.Unmarshal(payload, &s))
	return s
}

func TestImportProcessor_Process_QuandoImportacaoConclui_DeveGravarResultado(t *testing.T) {
	// Arrange
	imp := &mockImportador{}
	store := &memStore{dados: map[string][]byte{}}
	j := job()
	res := importacao.Resultado{Success: true}
	res.Statistics.Insertion.Succeeded = 3
	imp.On("Importar", mock.Anything, "ctes.csv", []byte("conteudo"), importacao.Opcoes{Modo: importacao.ModoUpsert, TamanhoLote: 100}).
		Return(res, nil)

	// Act
	err := novoProcessor(imp, store).Process(context.Background(), j)

	// Assert
	require.NoError(t, err)
	imp.AssertExpectations(t)
	s := lerSituacao(t, store, j.ID)
	assert.Equal(t, SituacaoConcluida, s.Status)
	assert.Equal(t, "ctes.csv", s.Arquivo)
	assert.True(t, s.Resultado.Success)
	assert.Equal(t, 3, s.Resultado.Statistics.Insertion.Succeeded)
	assert.True(t, agora.Equal(s.ConcluidoEm))
}

func TestImportProcessor_Process_QuandoArquivoInvalido_DeveGravarFalha(t *testing.T) {
	imp := &mockImportador{}
	store := &memStore{dados: map[string][]byte{}}
	res := importacao.Resultado{Success: false, Error: "Unsupported file extension: .pdf"}
	imp.On("Importar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(res, importacao.ErrExtensaoNaoSuportada)

	err := novoProcessor(imp, store).Process(context.Background(), job())

	require.NoError(t, err)
	s := lerSituacao(t, store, job().ID)
	assert.Equal(t, SituacaoFalhou, s.Status)
	assert.Equal(t, res.Error, s.Resultado.Error)
}

func TestImportProcessor_Process_QuandoStoreFalha_DevePropagar(t *testing.T) {
	imp := &mockImportador{}
	store := &memStore{dados: map[string][]byte{}, err: errors.New("redis fora")}
	imp.On("Importar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(importacao.Resultado{Success: true}, nil)

	err := novoProcessor(imp, store).Process(context.Background(), job())

	assert.ErrorContains(t, err, "redis fora")
}

func TestImportProcessor_Process_QuandoContextoCancelado_DeveGravarMesmoAssim(t *testing.T) {
	imp := &mockImportador{}
	store := &memStore{dados: map[string][]byte{}}
	imp.On("Importar", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(importacao.Resultado{Success: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := novoProcessor(imp, store).Process(ctx, job())

	require.NoError(t, err)
	_, err = store.Obter(context.Background(), job().ID)
	assert.NoError(t, err)
}
