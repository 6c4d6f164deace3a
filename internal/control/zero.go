package control

import "gonum.org/v1/gonum/mat"

type Zero struct {
	dim int
}

func NewZero(dim int) *Zero {
	return &Zero{
		dim: dim,
	}
}

func (z *Zero) Compute(obs *mat.Dense, t float64) *mat.Dense {
	n, _ := obs.Dims()
	return mat.NewDense(n, z.dim, nil)
}
