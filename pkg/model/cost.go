package model

import (
	"math"
	"runtime"
	"sync"

	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"gonum.org/v1/gonum/floats"

	"nndep/pkg/model/precompute"
)

// Example is a feature vector with the status of every transition: 1 for the oracle
// transition, 0 for other legal transitions and -1 for illegal ones.
type Example struct {
	Features []int
	Label    []int
}

// Gradients of the cost. Only the embedding rows used by the batch are present in E.
type Gradients struct {
	E  map[int][]float64
	W1 []float64
	B1 []float64
	W2 []float64
}

func newGradients(n *Network) *Gradients {
	return &Gradients{
		E:  make(map[int][]float64),
		W1: make([]float64, len(n.W1.Data())),
		B1: make([]float64, len(n.B1.Data())),
		W2: make([]float64, len(n.W2.Data())),
	}
}

func (g *Gradients) embedding(id, size int) []float64 {
	row, ok := g.E[id]
	if !ok {
		row = make([]float64, size)
		g.E[id] = row
	}
	return row
}

func (g *Gradients) add(other *Gradients) {
	floats.Add(g.W1, other.W1)
	floats.Add(g.B1, other.B1)
	floats.Add(g.W2, other.W2)
	for id, row := range other.E {
		floats.Add(g.embedding(id, len(row)), row)
	}
}

// CostParameters configure ComputeCost.
type CostParameters struct {
	RegParameter float64
	DropProb     float64
	// Workers is the number of goroutines sharing the batch, GOMAXPROCS if zero.
	Workers int
}

// Cost is the regularized loss of a batch, the fraction of examples whose best scoring
// legal transition is the oracle one, and the gradients of the loss.
type Cost struct {
	Loss      float64
	Accuracy  float64
	Gradients *Gradients
}

type partialCost struct {
	loss, correct float64
	gradients     *Gradients
	saved         []float64
}

// ComputeCost computes the softmax cross-entropy over the legal transitions of each
// example, averaged over the batch, plus L2 regularization. Features whose key is in
// preComputed are served from a cache built for this batch; their gradient is gathered
// per key and projected onto W1 and E once for the whole batch. float draws the dropout masks.
func (n *Network) ComputeCost(batch []*Example, preComputed map[int]bool, p CostParameters, float func() float64) *Cost {
	var keys []int
	seen := make(map[int]bool)
	for _, ex := range batch {
		for slot, id := range ex.Features {
			key := precompute.Key(id, slot, NumTokens)
			if preComputed[key] && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	cache := n.buildCache(keys)

	dropouts := make([]*Dropout, len(batch))
	for i := range dropouts {
		dropouts[i] = NewDropout(n.HiddenSize, p.DropProb, float)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(batch) {
		workers = len(batch)
	}
	batchSize := float64(len(batch))
	partials := make([]*partialCost, workers)
	var wg sync.WaitGroup
	for w := range partials {
		partials[w] = &partialCost{
			gradients: newGradients(n),
			saved:     make([]float64, cache.Len()*n.HiddenSize),
		}
		wg.Add(1)
		go func(part *partialCost, w int) {
			defer wg.Done()
			for i := w; i < len(batch); i += workers {
				n.backprop(batch[i], dropouts[i], cache, batchSize, part)
			}
		}(partials[w], w)
	}
	wg.Wait()

	total := &partialCost{gradients: newGradients(n), saved: make([]float64, cache.Len()*n.HiddenSize)}
	for _, part := range partials {
		total.loss += part.loss
		total.correct += part.correct
		total.gradients.add(part.gradients)
		floats.Add(total.saved, part.saved)
	}
	n.backpropSaved(cache, total.saved, total.gradients)

	cost := &Cost{
		Loss:      total.loss,
		Accuracy:  total.correct,
		Gradients: total.gradients,
	}
	n.addL2Regularization(cost, p.RegParameter)
	return cost
}

func (n *Network) backprop(ex *Example, dropout *Dropout, cache *precompute.Cache, batchSize float64, part *partialCost) {
	act := n.activate(ex.Features, cache, nn.Training, dropout)

	opt := -1
	for i, y := range ex.Label {
		if y >= 0 && (opt < 0 || act.scores[i] > act.scores[opt]) {
			opt = i
		}
	}
	if opt < 0 {
		return
	}
	maxScore := act.scores[opt]
	probs := make([]float64, len(act.scores))
	sumGold, sumAll := 0.0, 0.0
	for i, y := range ex.Label {
		if y < 0 {
			continue
		}
		probs[i] = math.Exp(act.scores[i] - maxScore)
		if y == 1 {
			sumGold += probs[i]
		}
		sumAll += probs[i]
	}
	if sumGold == 0 {
		return
	}
	part.loss += (math.Log(sumAll) - math.Log(sumGold)) / batchSize
	if ex.Label[opt] == 1 {
		part.correct += 1 / batchSize
	}

	h := n.HiddenSize
	w2 := n.W2.Data()
	g := part.gradients
	gradOutput := make([]float64, h)
	for i, y := range ex.Label {
		if y < 0 {
			continue
		}
		gold := 0.0
		if y == 1 {
			gold = 1
		}
		delta := (probs[i]/sumAll - gold) / batchSize
		floats.AddScaled(g.W2[i*h:(i+1)*h], delta, act.output)
		floats.AddScaled(gradOutput, delta, w2[i*h:(i+1)*h])
	}

	gradHidden := make([]float64, h)
	for j, z := range act.hidden {
		if !dropout.Keep[j] {
			continue
		}
		gradHidden[j] = gradOutput[j] * dropout.Scale * 3 * z * z
	}
	floats.Add(g.B1, gradHidden)

	for slot, id := range ex.Features {
		if pos, ok := cache.Position(precompute.Key(id, slot, NumTokens)); ok {
			floats.Add(part.saved[pos*h:(pos+1)*h], gradHidden)
			continue
		}
		n.backpropFeature(id, slot, gradHidden, g)
	}
}

// backpropFeature propagates the hidden layer gradient of one feature onto W1 and E.
func (n *Network) backpropFeature(id, slot int, gradHidden []float64, g *Gradients) {
	d := n.EmbeddingSize
	cols := NumTokens * d
	offset := slot * d
	w1 := n.W1.Data()
	x := n.Embedding(id)
	gradE := g.embedding(id, d)
	for j, gh := range gradHidden {
		if gh == 0 {
			continue
		}
		row := j*cols + offset
		floats.AddScaled(g.W1[row:row+d], gh, x)
		floats.AddScaled(gradE, gh, w1[row:row+d])
	}
}

func (n *Network) backpropSaved(cache *precompute.Cache, saved []float64, g *Gradients) {
	h := n.HiddenSize
	for pos, key := range cache.Keys() {
		id, slot := precompute.Split(key, NumTokens)
		n.backpropFeature(id, slot, saved[pos*h:(pos+1)*h], g)
	}
}

func (n *Network) addL2Regularization(cost *Cost, reg float64) {
	if reg == 0 {
		return
	}
	g := cost.Gradients
	penalty := 0.0
	for _, m := range []struct{ param, grad []float64 }{
		{n.W1.Data(), g.W1},
		{n.B1.Data(), g.B1},
		{n.W2.Data(), g.W2},
	} {
		penalty += floats.Dot(m.param, m.param)
		floats.AddScaled(m.grad, reg, m.param)
	}
	for id, grad := range g.E {
		x := n.Embedding(id)
		penalty += floats.Dot(x, x)
		floats.AddScaled(grad, reg, x)
	}
	cost.Loss += reg / 2 * penalty
}
