package ratelimit

import "context"

// Noop aceita tudo; usado quando o rate limit está desligado ou sem Redis.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Permitir(context.Context, string) error {
	return nil
}
