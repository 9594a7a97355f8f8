package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

func TestResultadoStore_SalvarEObter_QuandoDentroDoPrazo_DeveDevolverPayload(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewResultadoStore(client, "importacao", time.Hour)
	ctx := context.Background()

	// Act
	require.NoError(t, store.Salvar(ctx, "01J000", []byte(`{"success":true}`)))
	payload, err := store.Obter(ctx, "01J000")

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(payload))
	assert.True(t, mr.Exists("importacao:01J000"))
	assert.Equal(t, time.Hour, mr.TTL("importacao:01J000"))
}

func TestResultadoStore_Obter_QuandoExpirado_DeveRetornarNaoEncontrado(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewResultadoStore(client, "importacao", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Salvar(ctx, "01J001", []byte(`{}`)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Obter(ctx, "01J001")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResultadoStore_key_QuandoPrefixVazio_DeveUsarSoOID(t *testing.T) {
	client, _ := setupRedis(t)

	assert.Equal(t, "abc", NewResultadoStore(client, "", time.Minute).key("abc"))
	assert.Equal(t, "p:abc", NewResultadoStore(client, "p", time.Minute).key("abc"))
}
