package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// JacobianMatrix wraps a sparse LU matrix for the Newton iteration.
// Rows and columns are 1-based; rhs and solution carry a dummy entry at
// index 0.
type JacobianMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration
}

func NewMatrix(size int) (*JacobianMatrix, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	vectorSize := size + 1 // rhs, solution size
	return &JacobianMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, vectorSize), // 1-based indexing
		solution: make([]float64, vectorSize),
		config:   config,
	}, nil
}

func (m *JacobianMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		fmt.Printf("Warning: Matrix index out of bounds (i=%d, j=%d, size=%d)\n", i, j, m.Size)
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

func (m *JacobianMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		fmt.Printf("Warning: RHS index out of bounds (i=%d, size=%d)\n", i, m.Size)
		return
	}
	m.rhs[i] += value
}

func (m *JacobianMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *JacobianMatrix) Solve() error {
	err := m.matrix.Factor()
	if err != nil {
		return fmt.Errorf("matrix factorization failed: %v", err)
	}

	m.solution, err = m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}

	return nil
}

func (m *JacobianMatrix) RHS() []float64 {
	return m.rhs
}

func (m *JacobianMatrix) Solution() []float64 {
	return m.solution
}

func (m *JacobianMatrix) PrintSystem() {
	fmt.Printf("\nJacobian System (%dx%d):\n", m.Size, m.Size)

	for i := 1; i <= m.Size; i++ {
		fmt.Printf("Equation %d:\n", i)
		rowHasElements := false
		for j := 1; j <= m.Size; j++ {
			element := m.matrix.GetElement(int64(i), int64(j))
			if element.Real != 0 {
				fmt.Printf("  %+g*x%d ", element.Real, j)
				rowHasElements = true
			}
		}
		if rowHasElements {
			fmt.Printf(" = %g\n", m.rhs[i])
		}
	}

	m.matrix.Print(false, true, true)

	fmt.Printf("RHS:\n")
	for i := 1; i <= m.Size; i++ {
		fmt.Printf("  x%d = %g\n", i, m.rhs[i])
	}
}

func (m *JacobianMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
