package features

// Matrix is a dense row-major 2-D array.
type Matrix [][]float64

// NewMatrix allocates a zeroed rows x cols matrix backed by one slice.
func NewMatrix(rows, cols int) Matrix {
	backing := make([]float64, rows*cols)
	m := make(Matrix, rows)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// Rows returns the row count.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the column count of the first row, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Column copies column j.
func (m Matrix) Column(j int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = row[j]
	}
	return out
}

// rectangular reports whether every row has cols entries.
func (m Matrix) rectangular(cols int) bool {
	for _, row := range m {
		if len(row) != cols {
			return false
		}
	}
	return true
}
