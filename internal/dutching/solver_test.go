package dutching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/dutch-trader/internal/models"
)

func TestSolveSquare(t *testing.T) {
	tests := []struct {
		name string
		a    [][]float64
		b    []float64
		want []float64
	}{
		{
			name: "Identity",
			a:    [][]float64{{1, 0}, {0, 1}},
			b:    []float64{3, 7},
			want: []float64{3, 7},
		},
		{
			name: "Requires pivoting",
			a:    [][]float64{{0, 2, 1}, {1, 1, 1}, {2, 0, 1}},
			b:    []float64{7, 6, 5},
			want: []float64{1, 2, 3},
		},
		{
			name: "Negative coefficients",
			a:    [][]float64{{2, -1}, {-3, 4}},
			b:    []float64{0, 5},
			want: []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := solveSquare(tt.a, tt.b)
			require.NoError(t, err)
			require.Len(t, x, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], x[i], 1e-9)
			}
		})
	}
}

func TestSolveSquareSingular(t *testing.T) {
	a := [][]float64{{1, 2}, {2, 4}}
	b := []float64{1, 2}
	_, err := solveSquare(a, b)
	assert.ErrorIs(t, err, models.ErrSingularSystem)
}

func TestSolveLeastSquaresOverdetermined(t *testing.T) {
	// Three consistent equations in two unknowns: x=2, y=1.
	a := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	b := []float64{2, 1, 3}
	x, err := solveLeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x[0], 1e-9)
	assert.InDelta(t, 1.0, x[1], 1e-9)

	// Inconsistent system: least-squares picks the minimizer, not an exact
	// solution. Fitting a constant to 0 and 2 gives 1.
	a = [][]float64{{1}, {1}}
	b = []float64{0, 2}
	x, err = solveLeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x[0], 1e-9)
}
