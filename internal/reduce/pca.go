package reduce

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pca projects the vectors onto their top targetDim principal components.
// The data is mean-centered before projection so the plot is centered on the
// origin. Deterministic for a fixed input order.
func pca(vectors [][]float32, targetDim int) ([][]float64, error) {
	n := len(vectors)
	dim := len(vectors[0])

	data := mat.NewDense(n, dim, nil)
	for i, v := range vectors {
		for j, f := range v {
			data.Set(i, j, float64(f))
		}
	}
	center(data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("reduce: principal component decomposition failed")
	}

	var components mat.Dense
	pc.VectorsTo(&components)
	if c := components.RawMatrix().Cols; c < targetDim {
		return nil, fmt.Errorf("%w: only %d principal components available, need %d",
			ErrInsufficientData, c, targetDim)
	}

	var projected mat.Dense
	projected.Mul(data, components.Slice(0, dim, 0, targetDim))

	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, targetDim)
		for j := 0; j < targetDim; j++ {
			row[j] = projected.At(i, j)
		}
		out[i] = row
	}
	return out, nil
}

// center subtracts each column's mean in place.
func center(m *mat.Dense) {
	rows, cols := m.Dims()
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		mean := sum / float64(rows)
		for i := 0; i < rows; i++ {
			m.Set(i, j, m.At(i, j)-mean)
		}
	}
}
