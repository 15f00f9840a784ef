package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"nndep/pkg/transition"
)

// leftArcModel scores L(root) far above every other transition, so every legal
// transition other than L(root) ties at zero.
func leftArcModel(t *testing.T) *Model {
	m := newTestModel(t, NetworkConfig{EmbeddingSize: 2, HiddenSize: 3}, 0.1)
	n := m.Network
	for _, data := range [][]float64{n.E.Data(), n.W1.Data(), n.W2.Data()} {
		for i := range data {
			data[i] = 0
		}
	}
	for i := range n.B1.Data() {
		n.B1.Data()[i] = 1
	}
	for j := 0; j < n.HiddenSize; j++ {
		n.W2.Data()[j] = 100
	}
	require.NoError(t, m.Initialize(false))
	return m
}

func TestModel_ParseSkipsIllegalBestTransition(t *testing.T) {
	m := leftArcModel(t)
	require.Equal(t, transition.Transition{Kind: transition.LeftArc, Label: "root"}, m.System.Transitions[0])

	sentences, _ := dogsChaseCats()
	tree, err := m.Parse(sentences[0])
	require.NoError(t, err)
	require.True(t, tree.IsTree())
	want := transition.NewTreeFrom([]int{2, 3, 0}, []string{"root", "root", "root"})
	require.True(t, want.Equal(tree), "got %v", tree)
}

func TestModel_ParseEmptySentence(t *testing.T) {
	m := leftArcModel(t)
	tree, err := m.Parse(transition.Sentence{})
	require.NoError(t, err)
	require.Equal(t, 0, tree.Len())
}

func TestModel_Predict(t *testing.T) {
	m := leftArcModel(t)
	sentences := []transition.Sentence{
		{{Word: "Dogs", POS: "NNS"}, {Word: "chase", POS: "VBP"}, {Word: "cats", POS: "NNS"}},
		{{Word: "cats", POS: "NNS"}},
		{{Word: "Dogs", POS: "NNS"}, {Word: "chase", POS: "VBP"}},
		{{Word: "unseen", POS: "JJ"}, {Word: "cats", POS: "NNS"}, {Word: "chase", POS: "VBP"}, {Word: "Dogs", POS: "NNS"}},
	}
	trees, err := m.Predict(context.Background(), sentences, 3)
	require.NoError(t, err)
	require.Len(t, trees, len(sentences))
	for i, sentence := range sentences {
		want, err := m.Parse(sentence)
		require.NoError(t, err)
		require.True(t, want.Equal(trees[i]))
		require.Equal(t, len(sentence), trees[i].Len())
		require.True(t, trees[i].IsTree())
	}
}

func TestModel_PredictCancelled(t *testing.T) {
	m := leftArcModel(t)
	sentences, _ := dogsChaseCats()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Predict(ctx, sentences, 2)
	require.ErrorIs(t, err, context.Canceled)
}
