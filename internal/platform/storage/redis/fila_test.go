package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/ids"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client, mr
}

var errConcluido = errors.New("processamento concluído")

func novoJob(gen *ids.Generator, nome string) domain.JobImportacao {
	return domain.JobImportacao{
		ID:            gen.New(),
		NomeArquivo:   nome,
		Conteudo:      []byte("numero_cte;valor_total\n1001;100,00\n"),
		Modo:          "inserir",
		EnfileiradoEm: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFilaImportacao_PublicarEConsumir_QuandoValido_DeveEntregarJob(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Arrange
	job := novoJob(ids.NewGenerator(), "ctes.csv")
	require.NoError(t, fila.Publicar(ctx, job))

	// Act
	var recebido domain.JobImportacao
	err := fila.Consumir(ctx, func(_ context.Context, j domain.JobImportacao) error {
		recebido = j
		return errConcluido
	})

	// Assert
	assert.ErrorIs(t, err, errConcluido)
	assert.Equal(t, job.ID, recebido.ID)
	assert.Equal(t, job.NomeArquivo, recebido.NomeArquivo)
	assert.Equal(t, job.Conteudo, recebido.Conteudo)
	assert.Equal(t, job.Modo, recebido.Modo)
	assert.True(t, job.EnfileiradoEm.Equal(recebido.EnfileiradoEm))
}

func TestFilaImportacao_Consumir_QuandoVariosJobs_DeveManterOrdemDeChegada(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	gen := ids.NewGenerator()
	jobs := []domain.JobImportacao{novoJob(gen, "a.csv"), novoJob(gen, "b.csv"), novoJob(gen, "c.csv")}

	var recebidos []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := fila.Consumir(ctx, func(_ context.Context, j domain.JobImportacao) error {
			mu.Lock()
			defer mu.Unlock()
			recebidos = append(recebidos, j.NomeArquivo)
			if len(recebidos) == len(jobs) {
				return errConcluido
			}
			return nil
		})
		if !errors.Is(err, errConcluido) {
			t.Errorf("erro inesperado no consumo: %v", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	for _, j := range jobs {
		require.NoError(t, fila.Publicar(ctx, j))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.csv", "b.csv", "c.csv"}, recebidos)
}

func TestFilaImportacao_Consumir_QuandoPayloadInvalido_DeveDescartarESeguir(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, client.LPush(ctx, "fila:importacoes", "{nao-e-json").Err())
	job := novoJob(ids.NewGenerator(), "ok.csv")
	require.NoError(t, fila.Publicar(ctx, job))

	var recebido string
	err := fila.Consumir(ctx, func(_ context.Context, j domain.JobImportacao) error {
		recebido = j.NomeArquivo
		return errConcluido
	})

	assert.ErrorIs(t, err, errConcluido)
	assert.Equal(t, "ok.csv", recebido)
}

func TestFilaImportacao_Consumir_QuandoFilaVazia_DeveTerminarNoPrazo(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	chamadas := 0
	err := fila.Consumir(ctx, func(context.Context, domain.JobImportacao) error {
		chamadas++
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, chamadas)
}

func TestFilaImportacao_Consumir_QuandoContextoCancelado_DeveParar(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fila.Consumir(ctx, func(context.Context, domain.JobImportacao) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilaImportacao_Tamanho_DeveContarPendentes(t *testing.T) {
	client, _ := setupRedis(t)
	fila := NewFilaImportacao(client, "fila:importacoes")
	ctx := context.Background()
	gen := ids.NewGenerator()

	require.NoError(t, fila.Publicar(ctx, novoJob(gen, "a.csv")))
	require.NoError(t, fila.Publicar(ctx, novoJob(gen, "b.csv")))

	n, err := fila.Tamanho(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNewClient_QuandoServidorDisponivel_DeveConectar(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), mr.Addr(), "", 0)

	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestNewClient_QuandoServidorIndisponivel_DeveFalhar(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), addr, "", 0)

	assert.ErrorContains(t, err, "ping")
}
