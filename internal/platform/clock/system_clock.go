package clock

import "time"

// SystemClock devolve o instante corrente no fuso da operação, que define o "hoje" das regras.
type SystemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

// Load resolve o fuso pelo nome IANA.
func Load(nome string) (*time.Location, error) {
	if nome == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(nome)
}

func (c SystemClock) Agora() time.Time {
	return time.Now().In(c.loc)
}

// Fixed é usado por testes e pela CLI quando uma data de referência é forçada.
type Fixed struct {
	Instante time.Time
}

func (f Fixed) Agora() time.Time {
	return f.Instante
}
