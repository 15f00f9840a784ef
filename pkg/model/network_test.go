package model

import (
	"testing"

	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/stretchr/testify/require"

	"nndep/pkg/model/precompute"
)

type testRand struct {
	values []float64
	index  int
}

func (t *testRand) Float() float64 {
	v := t.values[t.index]
	t.index = (t.index + 1) % len(t.values)
	return v
}

func testFeatures(m *Model, offset int) []int {
	features := make([]int, NumTokens)
	for i := range features {
		features[i] = (i*7 + offset) % m.Dictionaries.Size()
	}
	return features
}

func TestNetwork_PreComputedScoresMatch(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 3, HiddenSize: 6}, 0.5)
	features := testFeatures(m, 1)
	direct := m.Network.Scores(features)

	keys := make([]int, 0, NumTokens)
	for slot, id := range features {
		if slot%2 == 0 {
			keys = append(keys, precompute.Key(id, slot, NumTokens))
		}
	}
	m.Network.PreCompute(keys)
	require.Equal(t, len(keys), m.Network.Cache().Len())
	require.InDeltaSlice(t, direct, m.Network.Scores(features), 1e-12)

	m.Network.DropCache()
	require.Nil(t, m.Network.Cache())
	require.InDeltaSlice(t, direct, m.Network.Scores(features), 1e-12)
}

func TestNetwork_PreComputeSkipsInvalidKeys(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 3, HiddenSize: 6}, 0.5)
	m.Network.PreCompute([]int{-1, 5, 5, m.Dictionaries.Size() * NumTokens})
	require.Equal(t, []int{5}, m.Network.Cache().Keys())
}

func TestNewDropout(t *testing.T) {
	r := &testRand{values: []float64{0.0, 0.09, 0.101, 1.0, 0.5}}
	d := NewDropout(5, 0.1, r.Float)
	require.Equal(t, []bool{false, false, true, true, true}, d.Keep)
	require.InDelta(t, 1/0.9, d.Scale, 1e-12)

	none := NewDropout(3, 0, r.Float)
	require.Equal(t, []bool{true, true, true}, none.Keep)
	require.Equal(t, 1.0, none.Scale)
}

func TestNetwork_ForwardModes(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 3, HiddenSize: 4}, 0.5)
	features := testFeatures(m, 3)
	inference := m.Network.Forward(features, nn.Inference, nil)

	keepAll := &Dropout{Keep: []bool{true, true, true, true}, Scale: 1}
	require.InDeltaSlice(t, inference, m.Network.Forward(features, nn.Training, keepAll), 1e-12)

	dropAll := &Dropout{Keep: make([]bool, 4), Scale: 2}
	require.Equal(t, make([]float64, m.Network.NumTransitions), m.Network.Forward(features, nn.Training, dropAll))
	require.InDeltaSlice(t, inference, m.Network.Forward(features, nn.Inference, dropAll), 1e-12)
}

func testBatch(m *Model) []*Example {
	return []*Example{
		{Features: testFeatures(m, 0), Label: []int{-1, 0, 1, -1, 0, 0, -1}},
		{Features: testFeatures(m, 2), Label: []int{0, 0, -1, 1, -1, -1, 0}},
		{Features: testFeatures(m, 5), Label: []int{-1, -1, -1, -1, -1, -1, 1}},
	}
}

func TestNetwork_ComputeCostGradients(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 2, HiddenSize: 3}, 0.5)
	batch := testBatch(m)
	preComputed := map[int]bool{}
	for slot, id := range batch[0].Features[:10] {
		preComputed[precompute.Key(id, slot, NumTokens)] = true
	}
	params := CostParameters{RegParameter: 0.01, Workers: 2}
	half := func() float64 { return 0.5 }

	cost := m.Network.ComputeCost(batch, preComputed, params, half)
	require.Greater(t, cost.Loss, 0.0)
	require.InDelta(t, cost.Accuracy*3, float64(int(cost.Accuracy*3+0.5)), 1e-9)

	loss := func() float64 {
		return m.Network.ComputeCost(batch, preComputed, params, half).Loss
	}
	const eps = 1e-6
	check := func(name string, param []float64, grad []float64, indices ...int) {
		for _, i := range indices {
			orig := param[i]
			param[i] = orig + eps
			plus := loss()
			param[i] = orig - eps
			minus := loss()
			param[i] = orig
			numeric := (plus - minus) / (2 * eps)
			require.InDelta(t, numeric, grad[i], 1e-6+1e-4*abs(numeric), "%s[%d]", name, i)
		}
	}
	g := cost.Gradients
	check("W2", m.Network.W2.Data(), g.W2, 0, 4, 10, 20)
	check("B1", m.Network.B1.Data(), g.B1, 0, 1, 2)
	// slots 0 and 1 are precomputed, slot 20 is not
	d := m.Network.EmbeddingSize
	check("W1", m.Network.W1.Data(), g.W1, 0, 1, 20*d, NumTokens*d+20*d+1)

	id := batch[1].Features[20]
	require.Contains(t, g.E, id)
	check("E", m.Network.E.Data()[id*d:(id+1)*d], g.E[id], 0, 1)
	cached := batch[0].Features[0]
	require.Contains(t, g.E, cached)
	check("E", m.Network.E.Data()[cached*d:(cached+1)*d], g.E[cached], 0, 1)
}

func TestNetwork_ComputeCostWorkersAgree(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 2, HiddenSize: 3}, 0.5)
	batch := testBatch(m)
	half := func() float64 { return 0.5 }

	one := m.Network.ComputeCost(batch, nil, CostParameters{Workers: 1}, half)
	many := m.Network.ComputeCost(batch, nil, CostParameters{Workers: 3}, half)
	require.InDelta(t, one.Loss, many.Loss, 1e-12)
	require.InDeltaSlice(t, one.Gradients.W1, many.Gradients.W1, 1e-12)
	require.Equal(t, len(one.Gradients.E), len(many.Gradients.E))
}

func TestAdaGrad_Update(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 2, HiddenSize: 3}, 0.5)
	n := m.Network
	n.PreCompute([]int{0})
	n.B1.Data()[0] = 1
	e := n.Embedding(4)
	e[1] = 2

	a := NewAdaGrad(n, 0.1, 1e-8)
	g := newGradients(n)
	g.B1[0] = 0.5
	g.E[4] = []float64{0, -2}
	before := append([]float64(nil), n.W1.Data()...)
	other := append([]float64(nil), n.Embedding(3)...)

	a.Update(n, g)
	require.InDelta(t, 0.9, n.B1.Data()[0], 1e-6)
	require.InDelta(t, 2.1, n.Embedding(4)[1], 1e-6)
	require.Equal(t, before, n.W1.Data())
	require.Equal(t, other, n.Embedding(3))
	require.Nil(t, n.Cache())

	a.Update(n, g)
	require.InDelta(t, 0.9-0.1*0.5/(0.5*1.4142135623730951), n.B1.Data()[0], 1e-6)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestAdaGrad_Reset(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 2, HiddenSize: 3}, 0.5)
	n := m.Network
	n.B1.Data()[0] = 1
	a := NewAdaGrad(n, 0.1, 1e-8)
	g := newGradients(n)
	g.B1[0] = 0.5

	a.Update(n, g)
	a.Reset()
	a.Update(n, g)
	require.InDelta(t, 0.8, n.B1.Data()[0], 1e-6)
}
