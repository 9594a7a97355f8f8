package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

const tempoEsperaFila = 5 * time.Second

// FilaImportacao guarda os jobs numa lista Redis: LPUSH na publicação e BRPOP no consumo, em ordem FIFO.
type FilaImportacao struct {
	client *redis.Client
	key    string
}

func NewFilaImportacao(client *redis.Client, key string) *FilaImportacao {
	return &FilaImportacao{client: client, key: key}
}

func (f *FilaImportacao) Publicar(ctx context.Context, job domain.JobImportacao) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis fila: serializar job %s: %w", job.ID, err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: enfileirar job %s: %w", job.ID, err)
	}
	return nil
}

// Consumir bloqueia até o contexto terminar ou o handler devolver erro.
// Payload ilegível é descartado para não travar a fila.
func (f *FilaImportacao) Consumir(ctx context.Context, handler func(context.Context, domain.JobImportacao) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := f.client.BRPop(ctx, tempoEsperaFila, f.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("redis fila: consumir: %w", err)
		}
		if len(res) != 2 {
			continue
		}

		var job domain.JobImportacao
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			continue
		}

		if err := handler(ctx, job); err != nil {
			return err
		}
	}
}

// Tamanho informa quantos jobs aguardam processamento.
func (f *FilaImportacao) Tamanho(ctx context.Context) (int64, error) {
	n, err := f.client.LLen(ctx, f.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis fila: tamanho: %w", err)
	}
	return n, nil
}

var _ domain.FilaImportacao = (*FilaImportacao)(nil)
