package model

import (
	"context"
	"testing"

	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/stretchr/testify/require"

	"nndep/pkg/transition"
)

func dogsChaseCats() ([]transition.Sentence, []*transition.Tree) {
	sentences := []transition.Sentence{{{Word: "Dogs", POS: "NNS"}, {Word: "chase", POS: "VBP"}, {Word: "cats", POS: "NNS"}}}
	trees := []*transition.Tree{transition.NewTreeFrom([]int{2, 0, 2}, []string{"nsubj", "root", "obj"})}
	return sentences, trees
}

func newTestModel(t *testing.T, config NetworkConfig, initRange float64) *Model {
	t.Helper()
	sentences, trees := dogsChaseCats()
	dicts, err := BuildDictionaries(sentences, trees, 1)
	require.NoError(t, err)
	numTransitions := 2*dicts.Labels.Size() - 1
	network := NewNetwork(config, dicts.Size(), numTransitions)
	network.Init(initRange, rand.NewLockedRand(42))
	return &Model{Dictionaries: dicts, Network: network}
}

func TestModel_Initialize(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 4, HiddenSize: 5}, 0.1)
	m.PreComputed = []int{m.Dictionaries.WordID(Null) * NumTokens, m.Dictionaries.WordID("chase")*NumTokens + 2}
	require.NoError(t, m.Initialize(true))
	require.Equal(t, 7, m.System.NumTransitions())
	require.Equal(t, "root", m.System.RootLabel)
	require.Equal(t, 2, m.Network.Cache().Len())

	require.NoError(t, m.Initialize(false))
	require.Nil(t, m.Network.Cache())
}

func TestModel_InitializeMismatch(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 4, HiddenSize: 5}, 0.1)
	m.Network = NewNetwork(m.Network.NetworkConfig, m.Dictionaries.Size(), 5)
	require.Error(t, m.Initialize(false))

	empty := &Model{}
	require.ErrorIs(t, empty.Initialize(true), ErrNotInitialized)
}

func TestModel_ParseBeforeInitialize(t *testing.T) {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 4, HiddenSize: 5}, 0.1)
	sentences, _ := dogsChaseCats()
	_, err := m.Parse(sentences[0])
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = (&Model{}).Predict(context.Background(), sentences, 1)
	require.ErrorIs(t, err, ErrNotInitialized)
}
