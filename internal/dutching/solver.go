package dutching

import (
	"math"

	"github.com/yourusername/dutch-trader/internal/models"
)

// solveSquare solves A·x = b by Gaussian elimination with partial pivoting.
// A is modified in place. The systems here are tiny (one row per selection,
// rarely more than ten), so a dense solve is more than adequate.
func solveSquare(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		// Pivot on the largest magnitude entry in the column.
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, models.ErrSingularSystem
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	// Back substitution.
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}

// solveLeastSquares solves an overdetermined A·x = b (more rows than
// columns) via the normal equations AᵗA·x = Aᵗb, reusing the square solver.
// Adequate at this scale; the matrices are far too small for conditioning
// to matter.
func solveLeastSquares(a [][]float64, b []float64) ([]float64, error) {
	rows := len(a)
	if rows == 0 {
		return nil, models.ErrSingularSystem
	}
	cols := len(a[0])
	if rows == cols {
		return solveSquare(a, b)
	}

	ata := make([][]float64, cols)
	atb := make([]float64, cols)
	for i := 0; i < cols; i++ {
		ata[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			sum := 0.0
			for r := 0; r < rows; r++ {
				sum += a[r][i] * a[r][j]
			}
			ata[i][j] = sum
		}
		sum := 0.0
		for r := 0; r < rows; r++ {
			sum += a[r][i] * b[r]
		}
		atb[i] = sum
	}
	return solveSquare(ata, atb)
}
