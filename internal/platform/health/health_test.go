package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupMockRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func ready(t *testing.T, checker *Checker, ctx context.Context) (int, Resposta) {
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	checker.ReadyHandler().ServeHTTP(w, req)

	var resp Resposta
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestReadyHandler_QuandoTodosServicosDisponiveis_DeveRetornar200(t *testing.T) {
	checker := NewChecker(setupDB(t), setupMockRedis(t))

	code, resp := ready(t, checker, context.Background())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
}

func TestReadyHandler_QuandoRedisDesligado_DeveChecarSoBanco(t *testing.T) {
	checker := NewChecker(setupDB(t), nil)

	code, resp := ready(t, checker, context.Background())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"database": "ok"}, resp.Checks)
}

func TestReadyHandler_QuandoDBIndisponivel_DeveRetornar503(t *testing.T) {
	db := setupDB(t)
	db.Close()
	checker := NewChecker(db, setupMockRedis(t))

	code, resp := ready(t, checker, context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "indisponivel", resp.Status)
	assert.Equal(t, "indisponivel", resp.Checks["database"])
	assert.Equal(t, "ok", resp.Checks["redis"])
}

func TestReadyHandler_QuandoRedisIndisponivel_DeveRetornar503(t *testing.T) {
	client := setupMockRedis(t)
	client.Close()
	checker := NewChecker(setupDB(t), client)

	code, resp := ready(t, checker, context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "indisponivel", resp.Checks["redis"])
}

func TestReadyHandler_QuandoContextoCancelado_DeveFalhar(t *testing.T) {
	checker := NewChecker(setupDB(t), setupMockRedis(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _ := ready(t, checker, ctx)

	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestLiveHandler_DeveResponderSemChecarDependencias(t *testing.T) {
	db := setupDB(t)
	db.Close()
	checker := NewChecker(db, nil)
	w := httptest.NewRecorder()

	checker.LiveHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
