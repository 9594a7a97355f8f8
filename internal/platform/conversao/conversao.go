// Pacote conversao converte literais vindos de formulários e planilhas para os tipos do domínio.
package conversao

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDataInvalida   = errors.New("data invalida")
	ErrValorInvalido  = errors.New("valor monetario invalido")
	ErrNumeroInvalido = errors.New("numero invalido")
)

// Formatos de data aceitos, na ordem de tentativa. Dia e mês aceitam um ou dois dígitos.
var formatosData = []string{
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
	"2/1/06",
}

// Fallback ISO quando o valor vem com horário ou fuso.
var formatosISO = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// Faixa de seriais do Excel tratada como data (1954..2064); fora disso o número é rejeitado.
const (
	serialExcelMin = 20000
	serialExcelMax = 60000
)

// Texto normaliza campo textual: trim e vazio vira nil.
func Texto(valor string) *string {
	v := strings.TrimSpace(valor)
	if v == "" {
		return nil
	}
	return &v
}

// ParseData devolve nil para literal em branco e a data à meia-noite UTC caso contrário.
func ParseData(valor string) (*time.Time, error) {
	s := strings.TrimSpace(valor)
	if s == "" {
		return nil, nil
	}
	for _, layout := range formatosData {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	for _, layout := range formatosISO {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > serialExcelMin && f < serialExcelMax {
		d := serialExcelParaData(f)
		return &d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDataInvalida, valor)
}

func serialExcelParaData(serial float64) time.Time {
	// Base do Excel é 1899-12-30 por causa do bug do ano bissexto de 1900.
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(math.Floor(serial)))
}

// ParseMoeda aceita "1234.56", "1.234,56" e "R$ 1.234,56". Em branco devolve nil.
// A última ocorrência entre '.' e ',' decide qual é o separador decimal.
func ParseMoeda(valor string) (*decimal.Decimal, error) {
	s := strings.TrimSpace(valor)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return nil, nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimPrefix(s, "-")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
		if strings.Count(s, ".") > 1 {
			// Vários pontos sem vírgula só podem ser separadores de milhar.
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrValorInvalido, valor)
	}
	if neg {
		d = d.Neg()
	}
	d = d.Round(2)
	return &d, nil
}

var (
	milharRegex = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
	maiorNumero = decimal.NewFromInt(math.MaxInt64)
)

// ParseNumero converte o número do CT-e; aceita "1001", "1001.0" (célula numérica)
// e separador de milhar. Zero e negativos são rejeitados.
func ParseNumero(valor string) (int64, error) {
	s := strings.TrimSpace(valor)
	if s == "" {
		return 0, fmt.Errorf("%w: vazio", ErrNumeroInvalido)
	}
	if milharRegex.MatchString(s) {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(maiorNumero) {
		return 0, fmt.Errorf("%w: %q", ErrNumeroInvalido, valor)
	}
	return d.IntPart(), nil
}
