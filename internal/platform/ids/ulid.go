// Pacote ids gera identificadores ordenáveis para os jobs de importação.
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator é seguro para uso concorrente; ULIDs do mesmo milissegundo saem em ordem.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	agora   func() time.Time
}

func NewGenerator() *Generator {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		entropy: ulid.Monotonic(src, 0),
		agora:   time.Now,
	}
}

func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.agora().UTC()), g.entropy).String()
}

// Valido confere se o texto é um ULID bem formado, usado para rejeitar rotas com IDs lixo.
func Valido(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
