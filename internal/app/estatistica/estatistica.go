// Pacote estatistica reúne as medidas usadas pelas análises: média, mediana, percentil
// e regressão linear simples. Entradas vazias devolvem zero.
package estatistica

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func Media(valores []float64) float64 {
	if len(valores) == 0 {
		return 0
	}
	return stat.Mean(valores, nil)
}

func Mediana(valores []float64) float64 {
	return Percentil(valores, 50)
}

// Percentil interpola linearamente entre as posições vizinhas (p em 0..100).
func Percentil(valores []float64, p float64) float64 {
	if len(valores) == 0 {
		return 0
	}
	ordenados := append([]float64(nil), valores...)
	sort.Float64s(ordenados)

	if p <= 0 {
		return ordenados[0]
	}
	if p >= 100 {
		return ordenados[len(ordenados)-1]
	}
	pos := p / 100 * float64(len(ordenados)-1)
	inferior := int(math.Floor(pos))
	superior := int(math.Ceil(pos))
	if inferior == superior {
		return ordenados[inferior]
	}
	fracao := pos - float64(inferior)
	return ordenados[inferior] + (ordenados[superior]-ordenados[inferior])*fracao
}

func Min(valores []float64) float64 {
	if len(valores) == 0 {
		return 0
	}
	return floats.Min(valores)
}

func Max(valores []float64) float64 {
	if len(valores) == 0 {
		return 0
	}
	return floats.Max(valores)
}

// Reta é o ajuste por mínimos quadrados y = Inclinacao*x + Intercepto.
type Reta struct {
	Inclinacao float64
	Intercepto float64
	RQuadrado  float64
}

func (r Reta) Em(x float64) float64 {
	return r.Inclinacao*x + r.Intercepto
}

// MinimosQuadrados ajusta a reta sobre os pontos (i, y[i]). Com menos de dois pontos a
// inclinação é zero e a reta passa pelo único valor; série constante tem R² zero.
func MinimosQuadrados(y []float64) Reta {
	switch len(y) {
	case 0:
		return Reta{}
	case 1:
		return Reta{Intercepto: y[0]}
	}

	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	intercepto, inclinacao := stat.LinearRegression(x, y, nil, false)

	r2 := 0.0
	if stat.Variance(y, nil) > 0 {
		r2 = stat.RSquared(x, y, nil, intercepto, inclinacao)
	}
	return Reta{Inclinacao: inclinacao, Intercepto: intercepto, RQuadrado: r2}
}

// Arredondar2 arredonda para duas casas, meio para longe do zero.
func Arredondar2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentual devolve parte/total*100 e zero quando total é zero.
func Percentual(parte, total float64) float64 {
	if total == 0 {
		return 0
	}
	return parte / total * 100
}
