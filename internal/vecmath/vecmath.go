// Package vecmath provides the small dense linear algebra and summary
// statistics used by the regression fitters and the replicate driver.
package vecmath

import (
	"errors"
	"math"
)

// ErrSingular is returned by Solve when the system has no unique solution.
var ErrSingular = errors.New("singular matrix")

// ErrDimension is returned when operand shapes do not agree.
var ErrDimension = errors.New("dimension mismatch")

// Dot returns the inner product of a and b. Mismatched lengths return 0.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (n-1 denominator).
// Fewer than two values yield 0.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// MinMax returns the smallest and largest value. Empty input yields NaN, NaN.
func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// Logistic returns exp(x) / (1 + exp(x)), evaluated without overflow.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Solve solves the square system a·x = b by Gaussian elimination with
// partial pivoting. a and b are not modified. A pivot smaller than tol
// times the largest absolute entry of a is treated as singular.
func Solve(a [][]float64, b []float64, tol float64) ([]float64, error) {
	n := len(b)
	if len(a) != n {
		return nil, ErrDimension
	}

	// Augmented working copy.
	m := make([][]float64, n)
	var scale float64
	for i := range a {
		if len(a[i]) != n {
			return nil, ErrDimension
		}
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
		for _, v := range a[i] {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale == 0 {
		return nil, ErrSingular
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) <= tol*scale {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			if f == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := m[r][n]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x, nil
}

// NormalEquations accumulates XᵀWX and XᵀWz for design rows x, weights w
// and responses z. A nil w means unit weights; a nil z leaves XᵀWz zero.
func NormalEquations(x [][]float64, w, z []float64) ([][]float64, []float64) {
	if len(x) == 0 {
		return nil, nil
	}
	p := len(x[0])
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xtz := make([]float64, p)

	for r, row := range x {
		wr := 1.0
		if w != nil {
			wr = w[r]
		}
		for i := 0; i < p; i++ {
			wi := wr * row[i]
			if z != nil {
				xtz[i] += wi * z[r]
			}
			for j := i; j < p; j++ {
				xtx[i][j] += wi * row[j]
			}
		}
	}
	for i := 0; i < p; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}
	return xtx, xtz
}
