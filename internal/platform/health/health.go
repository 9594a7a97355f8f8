// Pacote health expõe as checagens de liveness e readiness usadas pela API e pelo worker.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusOK           = "ok"
	statusIndisponivel = "indisponivel"
)

type Resposta struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Checker pinga Postgres e Redis; dependência nil é considerada desligada e não entra na resposta.
type Checker struct {
	db      *sql.DB
	redis   *redis.Client
	timeout time.Duration
}

func NewChecker(db *sql.DB, redis *redis.Client) *Checker {
	return &Checker{db: db, redis: redis, timeout: 2 * time.Second}
}

// Verificar devolve o estado de cada dependência e se todas responderam.
func (c *Checker) Verificar(ctx context.Context) (Resposta, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := Resposta{Status: statusOK, Checks: map[string]string{}}
	pronto := true

	if c.db != nil {
		resp.Checks["database"] = statusOK
		if err := c.db.PingContext(ctx); err != nil {
			resp.Checks["database"] = statusIndisponivel
			pronto = false
		}
	}
	if c.redis != nil {
		resp.Checks["redis"] = statusOK
		if err := c.redis.Ping(ctx).Err(); err != nil {
			resp.Checks["redis"] = statusIndisponivel
			pronto = false
		}
	}

	if !pronto {
		resp.Status = statusIndisponivel
	}
	return resp, pronto
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		escrever(w, http.StatusOK, Resposta{Status: statusOK})
	}
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, pronto := c.Verificar(r.Context())
		status := http.StatusOK
		if !pronto {
			status = http.StatusServiceUnavailable
		}
		escrever(w, status, resp)
	}
}

func escrever(w http.ResponseWriter, status int, resp Resposta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
