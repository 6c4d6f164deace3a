package control

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Random samples every action uniformly from [-1, 1].
type Random struct {
	dim  int
	seed uint64
	dist distuv.Uniform
}

func NewRandom(dim int, seed uint64) *Random {
	r := &Random{dim: dim, seed: seed}
	r.Reset()
	return r
}

func (r *Random) Compute(obs *mat.Dense, t float64) *mat.Dense {
	n, _ := obs.Dims()
	u := mat.NewDense(n, r.dim, nil)
	raw := u.RawMatrix().Data
	for i := range raw {
		raw[i] = r.dist.Rand()
	}
	return u
}

// Reset rewinds the sample stream to its seed.
func (r *Random) Reset() {
	r.dist = distuv.Uniform{Min: -1, Max: 1, Src: rand.NewSource(r.seed)}
}
