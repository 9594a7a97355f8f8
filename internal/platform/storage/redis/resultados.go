package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

// ResultadoStore persiste o JSON do resultado de cada importação com expiração.
type ResultadoStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewResultadoStore(client *redis.Client, prefix string, ttl time.Duration) *ResultadoStore {
	return &ResultadoStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ResultadoStore) Salvar(ctx context.Context, id string, payload []byte) error {
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis resultados: salvar %s: %w", id, err)
	}
	return nil
}

func (s *ResultadoStore) Obter(ctx context.Context, id string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis resultados: obter %s: %w", id, err)
	}
	return payload, nil
}

func (s *ResultadoStore) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

var _ domain.ResultadoStore = (*ResultadoStore)(nil)
