// Pacote ratelimit limita envios de arquivos por cliente em janelas fixas no Redis, com modo noop.
package ratelimit

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

var ErrLimiteExcedido = errors.New("limite de importacoes atingido")

// RedisLimiter conta os envios de cada chave; o primeiro da janela define a expiração.
type RedisLimiter struct {
	client    *redis.Client
	limite    int
	janela    time.Duration
	keyPrefix string
}

func NewRedisLimiter(client *redis.Client, limite int, janela time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client:    client,
		limite:    limite,
		janela:    janela,
		keyPrefix: prefix,
	}
}

func (r *RedisLimiter) Permitir(ctx context.Context, chave string) error {
	if r.client == nil || r.limite <= 0 || r.janela <= 0 {
		return nil
	}

	key := r.buildKey(chave)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: incrementar %s: %w", key, err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.janela).Err(); err != nil {
			return fmt.Errorf("ratelimit: definir expiracao: %w", err)
		}
	}

	if int(count) > r.limite {
		return ErrLimiteExcedido
	}
	return nil
}

// A chave costuma ser o IP; só o hash vai para o Redis.
func (r *RedisLimiter) buildKey(chave string) string {
	hash := sha1.Sum([]byte(chave))
	return fmt.Sprintf("%s:%s", r.keyPrefix, hex.EncodeToString(hash[:]))
}

var _ domain.LimitadorEnvio = (*RedisLimiter)(nil)
