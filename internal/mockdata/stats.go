package mockdata

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 {
	return &v
}

// growthRates returns period-over-period growth in percent.
func growthRates(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] == 0 {
			continue
		}
		out = append(out, (series[i]-series[i-1])/series[i-1]*100)
	}
	return out
}

// share returns part as a percentage of the sum of all.
func share(part float64, all []float64) float64 {
	total := floats.Sum(all)
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// trendLine fits y = alpha + beta*x over x = 0..n-1.
func trendLine(ys []float64) (alpha, beta float64) {
	if len(ys) < 2 {
		if len(ys) == 1 {
			return ys[0], 0
		}
		return 0, 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return stat.LinearRegression(xs, ys, nil, false)
}
