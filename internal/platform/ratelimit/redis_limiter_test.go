package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func novoLimiter(t *testing.T, limite int, janela time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, limite, janela, "rl"), mr
}

func TestRedisLimiter_Permitir_QuandoPassaDoLimite_DeveBloquear(t *testing.T) {
	limiter, mr := novoLimiter(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Permitir(ctx, "200.1.1.1"))
	require.NoError(t, limiter.Permitir(ctx, "200.1.1.1"))

	assert.ErrorIs(t, limiter.Permitir(ctx, "200.1.1.1"), ErrLimiteExcedido)
	assert.Positive(t, mr.TTL(limiter.buildKey("200.1.1.1")))
}

func TestRedisLimiter_Permitir_QuandoJanelaExpira_DeveLiberar(t *testing.T) {
	janela := 30 * time.Second
	limiter, mr := novoLimiter(t, 1, janela)
	ctx := context.Background()

	require.NoError(t, limiter.Permitir(ctx, "200.2.2.2"))
	require.ErrorIs(t, limiter.Permitir(ctx, "200.2.2.2"), ErrLimiteExcedido)

	mr.FastForward(janela + time.Second)

	assert.NoError(t, limiter.Permitir(ctx, "200.2.2.2"))
}

func TestRedisLimiter_Permitir_QuandoChavesDiferentes_DeveContarSeparado(t *testing.T) {
	limiter, _ := novoLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Permitir(ctx, "a"))
	assert.NoError(t, limiter.Permitir(ctx, "b"))
}

func TestRedisLimiter_Permitir_QuandoConfiguracaoInvalida_DevePermitir(t *testing.T) {
	limiter := NewRedisLimiter(nil, 0, 0, "")

	assert.NoError(t, limiter.Permitir(context.Background(), "x"))
	assert.Equal(t, "ratelimit", limiter.keyPrefix)
	assert.NoError(t, NewNoop().Permitir(context.Background(), "x"))
}
