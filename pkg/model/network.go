package model

import (
	"github.com/nlpodyssey/spago/pkg/mat"
	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/initializers"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"gonum.org/v1/gonum/floats"

	"nndep/pkg/model/precompute"
)

type NetworkConfig struct {
	EmbeddingSize int
	HiddenSize    int
}

// Network scores transitions with one cubic hidden layer over the concatenated
// embeddings of the NumTokens features:
//
//	z = W1 · [E[f_1]; ...; E[f_48]] + b1
//	scores = W2 · z³
type Network struct {
	NetworkConfig
	NumTransitions int

	E  *mat.Dense // vocabulary size x EmbeddingSize
	W1 *mat.Dense // HiddenSize x NumTokens*EmbeddingSize
	B1 *mat.Dense // HiddenSize x 1
	W2 *mat.Dense // NumTransitions x HiddenSize

	cache precompute.Store
}

func NewNetwork(config NetworkConfig, vocabularySize, numTransitions int) *Network {
	return &Network{
		NetworkConfig:  config,
		NumTransitions: numTransitions,
		E:              mat.NewEmptyDense(vocabularySize, config.EmbeddingSize),
		W1:             mat.NewEmptyDense(config.HiddenSize, NumTokens*config.EmbeddingSize),
		B1:             mat.NewEmptyVecDense(config.HiddenSize),
		W2:             mat.NewEmptyDense(numTransitions, config.HiddenSize),
	}
}

// Init draws every parameter uniformly from [-initRange, initRange].
func (n *Network) Init(initRange float64, generator *rand.LockedRand) {
	initializers.Uniform(n.E, -initRange, initRange, generator)
	initializers.Uniform(n.W1, -initRange, initRange, generator)
	initializers.Uniform(n.B1, -initRange, initRange, generator)
	initializers.Uniform(n.W2, -initRange, initRange, generator)
}

func (n *Network) layout() precompute.Layout {
	return precompute.Layout{
		NumTokens:     NumTokens,
		EmbeddingSize: n.EmbeddingSize,
		HiddenSize:    n.HiddenSize,
	}
}

// Embedding returns the embedding row of a global dictionary id.
func (n *Network) Embedding(id int) []float64 {
	d := n.EmbeddingSize
	return n.E.Data()[id*d : (id+1)*d]
}

// PreCompute builds the cache of keys from the current parameters and publishes it.
func (n *Network) PreCompute(keys []int) {
	n.cache.Swap(n.buildCache(keys))
}

func (n *Network) buildCache(keys []int) *precompute.Cache {
	return precompute.Build(n.layout(), keys, n.E.Data(), n.W1.Data())
}

// DropCache discards the published cache. It must be called whenever E or W1 change.
func (n *Network) DropCache() {
	n.cache.Swap(nil)
}

// Cache returns the published cache, or nil.
func (n *Network) Cache() *precompute.Cache {
	return n.cache.Load()
}

// Dropout selects the hidden units kept in training mode and the factor survivors are
// scaled by.
type Dropout struct {
	Keep  []bool
	Scale float64
}

// NewDropout draws a mask keeping each unit with probability 1-prob.
func NewDropout(size int, prob float64, float func() float64) *Dropout {
	d := &Dropout{Keep: make([]bool, size), Scale: 1}
	if prob > 0 {
		d.Scale = 1 / (1 - prob)
	}
	for i := range d.Keep {
		d.Keep[i] = float() >= prob
	}
	return d
}

type activations struct {
	hidden []float64 // pre-activation z
	output []float64 // z³, after dropout in training mode
	scores []float64
}

// Scores returns the raw score of every transition for a feature vector.
func (n *Network) Scores(features []int) []float64 {
	return n.Forward(features, nn.Inference, nil)
}

// Forward computes the transition scores of features. The dropout mask is only used in
// training mode.
func (n *Network) Forward(features []int, mode nn.ProcessingMode, dropout *Dropout) []float64 {
	return n.activate(features, n.Cache(), mode, dropout).scores
}

func (n *Network) activate(features []int, cache *precompute.Cache, mode nn.ProcessingMode, dropout *Dropout) activations {
	layout := n.layout()
	hidden := make([]float64, n.HiddenSize)
	copy(hidden, n.B1.Data())
	w1 := n.W1.Data()
	for slot, id := range features {
		if v, ok := cache.Get(precompute.Key(id, slot, NumTokens)); ok {
			floats.Add(hidden, v)
			continue
		}
		precompute.Contribution(layout, hidden, w1, n.Embedding(id), slot)
	}

	output := make([]float64, n.HiddenSize)
	for j, z := range hidden {
		output[j] = z * z * z
	}
	if mode == nn.Training && dropout != nil {
		for j := range output {
			if dropout.Keep[j] {
				output[j] *= dropout.Scale
			} else {
				output[j] = 0
			}
		}
	}

	scores := make([]float64, n.NumTransitions)
	h := n.HiddenSize
	w2 := n.W2.Data()
	for i := range scores {
		scores[i] = floats.Dot(w2[i*h:(i+1)*h], output)
	}
	return activations{hidden: hidden, output: output, scores: scores}
}
