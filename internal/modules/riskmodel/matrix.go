package riskmodel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// AssetCovarianceMatrix is the N x N asset covariance matrix for a date,
// indexed by the reconciled universe's asset order. It owns its backing
// storage exclusively and is immutable once returned: accessors hand out
// copies, never the internal buffer.
type AssetCovarianceMatrix struct {
	date   string
	assets []string
	index  map[string]int
	data   []float64 // row-major, len N*N
}

// newAssetCovarianceMatrix wraps a backing slice the caller hands over.
// The slice must not be retained by the caller afterwards.
func newAssetCovarianceMatrix(date string, assets []string, data []float64) *AssetCovarianceMatrix {
	index := make(map[string]int, len(assets))
	owned := make([]string, len(assets))
	copy(owned, assets)
	for i, a := range owned {
		index[a] = i
	}
	return &AssetCovarianceMatrix{
		date:   date,
		assets: owned,
		index:  index,
		data:   data,
	}
}

// Date returns the construction date.
func (m *AssetCovarianceMatrix) Date() string { return m.date }

// Dim returns N, the number of assets.
func (m *AssetCovarianceMatrix) Dim() int { return len(m.assets) }

// Assets returns the ordered asset identifiers as a copy.
func (m *AssetCovarianceMatrix) Assets() []string {
	out := make([]string, len(m.assets))
	copy(out, m.assets)
	return out
}

// IndexOf returns the row/column index of an asset identifier.
func (m *AssetCovarianceMatrix) IndexOf(asset string) (int, bool) {
	i, ok := m.index[asset]
	return i, ok
}

// At returns the covariance at (i, j).
func (m *AssetCovarianceMatrix) At(i, j int) float64 {
	n := len(m.assets)
	if i < 0 || i >= n || j < 0 || j >= n {
		panic(fmt.Sprintf("riskmodel: index (%d, %d) out of range for %dx%d matrix", i, j, n, n))
	}
	return m.data[i*n+j]
}

// Covariance returns the covariance between two assets by identifier.
func (m *AssetCovarianceMatrix) Covariance(a, b string) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return 0, fmt.Errorf("asset %s not in matrix for %s", a, m.date)
	}
	j, ok := m.index[b]
	if !ok {
		return 0, fmt.Errorf("asset %s not in matrix for %s", b, m.date)
	}
	return m.data[i*len(m.assets)+j], nil
}

// Sym returns a gonum symmetric view as a fresh copy.
func (m *AssetCovarianceMatrix) Sym() *mat.SymDense {
	n := len(m.assets)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.data[i*n+j])
		}
	}
	return sym
}

// Rows returns the matrix as a row-major slice of rows, copied.
func (m *AssetCovarianceMatrix) Rows() [][]float64 {
	n := len(m.assets)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		copy(row, m.data[i*n:(i+1)*n])
		rows[i] = row
	}
	return rows
}

// raw returns the backing slice. Package-internal; used by the validator and
// the cache codec, which must not mutate it.
func (m *AssetCovarianceMatrix) raw() []float64 { return m.data }
