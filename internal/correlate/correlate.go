// Package correlate computes Pearson correlation between monthly series of
// different sources.
package correlate

import (
	"errors"
	"fmt"
	"math"

	"github.com/TobiSchelling/Pulse/internal/format"
	"github.com/TobiSchelling/Pulse/internal/metric"
)

// MinAligned is the fewest shared periods needed for a correlation.
const MinAligned = 3

var (
	ErrInsufficientData = errors.New("fewer than 3 aligned periods")
	ErrZeroVariance     = errors.New("series has zero variance")
)

// Pair names two sources whose monthly series should be compared.
type Pair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Correlation is one emitted result.
type Correlation struct {
	Pair    string   `json:"pair"`
	R       float64  `json:"r"`
	Sources []string `json:"sources"`
	Points  int      `json:"points"`
}

// Pearson aligns a and b by period label and returns r rounded to 3 decimals.
func Pearson(a, b []metric.TrendPoint) (float64, int, error) {
	byPeriod := make(map[string]float64, len(b))
	for _, p := range b {
		byPeriod[p.Period] = p.Value
	}
	var xs, ys []float64
	for _, p := range a {
		if v, ok := byPeriod[p.Period]; ok {
			xs = append(xs, p.Value)
			ys = append(ys, v)
		}
	}
	n := len(xs)
	if n < MinAligned {
		return 0, n, ErrInsufficientData
	}

	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/float64(n), sy/float64(n)

	var num, dx2, dy2 float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}
	den := math.Sqrt(dx2 * dy2)
	if den == 0 {
		return 0, n, ErrZeroVariance
	}
	return format.Round(num/den, 3), n, nil
}

// Analyzer correlates the configured source pairs.
type Analyzer struct {
	pairs []Pair
}

// NewAnalyzer creates an analyzer for the given pairs.
func NewAnalyzer(pairs []Pair) *Analyzer {
	return &Analyzer{pairs: pairs}
}

// Analyze returns correlations for every pair with enough aligned data.
// metricNames maps a source to its metric name for pair labels. Pairs with
// missing, sparse or flat series are skipped.
func (a *Analyzer) Analyze(monthly map[string][]metric.TrendPoint, metricNames map[string]string) []Correlation {
	var out []Correlation
	for _, p := range a.pairs {
		sa, sb := monthly[p.A], monthly[p.B]
		if len(sa) == 0 || len(sb) == 0 {
			continue
		}
		r, n, err := Pearson(sa, sb)
		if err != nil {
			continue
		}
		out = append(out, Correlation{
			Pair:    PairName(nameOr(metricNames, p.A), nameOr(metricNames, p.B)),
			R:       r,
			Sources: []string{p.A, p.B},
			Points:  n,
		})
	}
	return out
}

// PairName labels a correlation as "{a}_vs_{b}".
func PairName(a, b string) string {
	return fmt.Sprintf("%s_vs_%s", a, b)
}

func nameOr(names map[string]string, source string) string {
	if n, ok := names[source]; ok && n != "" {
		return n
	}
	return source
}
