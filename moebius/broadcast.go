package moebius

import (
	"gonum.org/v1/gonum/mat"
)

// eachRowAdd stores a with v added to every row into dst.
func eachRowAdd(dst *mat.Dense, a mat.Matrix, v mat.Vector) {
	dst.Apply(func(_, j int, x float64) float64 {
		return x + v.AtVec(j)
	}, a)
}

// eachColDiv divides every column of dst element-wise by v,
// row i is divided by v[i].
func eachColDiv(dst *mat.Dense, v []float64) {
	dst.Apply(func(i, _ int, x float64) float64 {
		return x / v[i]
	}, dst)
}
