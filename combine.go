package pauliframe

import (
	"github.com/hupe1980/pauliframe/frame"
)

// RelativeMeasurements returns the packed relative outcome matrix, one row
// per measurement bit: a set bit means that frame's outcome differs from the
// reference trajectory's.
func RelativeMeasurements(ens *frame.Ensemble) [][]uint64 {
	return ens.Relative()
}

// AbsoluteMeasurements combines reference outcomes with the ensemble's
// relative flips via XOR, yielding the absolute outcome per frame per bit.
// ref must carry one boolean per measurement slot.
func AbsoluteMeasurements(ref []bool, ens *frame.Ensemble) ([][]uint64, error) {
	if len(ref) != ens.Measurements() {
		return nil, &ErrReferenceShape{Expected: ens.Measurements(), Actual: len(ref)}
	}

	rows := ens.Relative()
	mask := ens.Tableau().TailMask()
	for b, set := range ref {
		if !set {
			continue
		}
		row := rows[b]
		for w := range row {
			row[w] = ^row[w]
		}
		row[len(row)-1] &= mask
	}
	return rows, nil
}
