package sweep

import (
	"errors"
	"fmt"

	"github.com/synaptecltd/splitwye/phasor"
	"gonum.org/v1/gonum/mat"
)

// Bundle is the internal stack of sub-capacitors that makes up one top-level element of a
// fuseless bank: series rows of parallel sub-capacitors.
type Bundle struct {
	sub   *mat.CDense // rows in series, columns in parallel
	blown int         // rows [0, blown) are shorted
}

// Returns a healthy series x parallel bundle of sub-capacitors with impedance z each.
func NewBundle(series, parallel int, z complex128) (*Bundle, error) {
	if series < 1 || parallel < 1 {
		return nil, errors.New("bundle must have at least one series row and one parallel sub-capacitor")
	}
	if z == 0 {
		return nil, errors.New("sub-capacitor impedance must be non-zero")
	}
	data := make([]complex128, series*parallel)
	for i := range data {
		data[i] = z
	}
	return &Bundle{sub: mat.NewCDense(series, parallel, data)}, nil
}

// Returns the number of series rows and parallel sub-capacitors.
func (b *Bundle) Dims() (series, parallel int) {
	return b.sub.Dims()
}

// Returns the number of rows shorted so far.
func (b *Bundle) Blown() int {
	return b.blown
}

// Blow shorts the first n series rows of the bundle. Rows already shorted stay shorted.
func (b *Bundle) Blow(n int) error {
	series, parallel := b.sub.Dims()
	if n < 0 || n > series {
		return fmt.Errorf("cannot blow %d rows of a bundle with %d series rows", n, series)
	}
	for row := b.blown; row < n; row++ {
		for col := 0; col < parallel; col++ {
			b.sub.Set(row, col, phasor.Short)
		}
	}
	if n > b.blown {
		b.blown = n
	}
	return nil
}

// Equivalent returns the series sum of the parallel equivalent of every row.
func (b *Bundle) Equivalent() (complex128, error) {
	series, parallel := b.sub.Dims()
	rowEq := make([]complex128, series)
	row := make([]complex128, parallel)
	for i := 0; i < series; i++ {
		for j := 0; j < parallel; j++ {
			row[j] = b.sub.At(i, j)
		}
		z, err := phasor.Parallel(row...)
		if err != nil {
			return 0, fmt.Errorf("bundle row %d: %w", i, err)
		}
		rowEq[i] = z
	}
	return phasor.Series(rowEq...), nil
}
