package model

import "math"

// AdaGrad keeps the running sum of squared gradients of every parameter and updates
//
//	θ = θ - α·g / sqrt(G + ε)
type AdaGrad struct {
	Alpha   float64
	Epsilon float64

	e, w1, b1, w2 []float64
}

func NewAdaGrad(n *Network, alpha, epsilon float64) *AdaGrad {
	return &AdaGrad{
		Alpha:   alpha,
		Epsilon: epsilon,
		e:       make([]float64, len(n.E.Data())),
		w1:      make([]float64, len(n.W1.Data())),
		b1:      make([]float64, len(n.B1.Data())),
		w2:      make([]float64, len(n.W2.Data())),
	}
}

// Update applies one step to n. Only the embedding rows present in g are touched.
// The precomputed cache of n is dropped since it no longer matches the parameters.
func (a *AdaGrad) Update(n *Network, g *Gradients) {
	a.step(n.W1.Data(), g.W1, a.w1)
	a.step(n.B1.Data(), g.B1, a.b1)
	a.step(n.W2.Data(), g.W2, a.w2)
	d := n.EmbeddingSize
	for id, grad := range g.E {
		a.step(n.Embedding(id), grad, a.e[id*d:(id+1)*d])
	}
	n.DropCache()
}

func (a *AdaGrad) step(param, grad, sum []float64) {
	for i, v := range grad {
		sum[i] += v * v
		param[i] -= a.Alpha * v / math.Sqrt(sum[i]+a.Epsilon)
	}
}

// Reset clears the accumulated squared gradients.
func (a *AdaGrad) Reset() {
	for _, sum := range [][]float64{a.e, a.w1, a.b1, a.w2} {
		for i := range sum {
			sum[i] = 0
		}
	}
}
