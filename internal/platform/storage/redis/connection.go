// Pacote redis implementa a fila de importações assíncronas e o armazenamento dos resultados.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient abre o pool e só devolve o cliente depois de um PING bem-sucedido.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		PoolSize:    20,
		PoolTimeout: 5 * time.Second,
		// BRPOP segura a conexão pelo tempo de espera da fila.
		ReadTimeout: tempoEsperaFila + 2*time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping em %s falhou: %w", addr, err)
	}

	return client, nil
}
