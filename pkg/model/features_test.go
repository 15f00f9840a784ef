package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nndep/pkg/transition"
)

func TestDictionaries_Features(t *testing.T) {
	sentences, trees := dogsChaseCats()
	dicts, err := BuildDictionaries(sentences, trees, 1)
	require.NoError(t, err)
	system := transition.NewArcStandard(dicts.ArcLabels())

	c := system.Initial(sentences[0])
	for _, tr := range []transition.Transition{
		{Kind: transition.Shift},
		{Kind: transition.Shift},
		{Kind: transition.LeftArc, Label: "nsubj"},
	} {
		c, err = system.Apply(c, tr)
		require.NoError(t, err)
	}

	// words 0-5, POS 6-10, labels 11-14
	nullWord, nullPOS, nullLabel := 1, 7, 11
	words := []int{nullWord, nullWord, 4, 5, nullWord, nullWord, 3, nullWord, nullWord, nullWord, nullWord, nullWord}
	tags := []int{nullPOS, nullPOS, 10, 9, nullPOS, nullPOS, 9, nullPOS, nullPOS, nullPOS, nullPOS, nullPOS}
	for i := 0; i < 6; i++ {
		words = append(words, nullWord)
		tags = append(tags, nullPOS)
	}
	labels := []int{13}
	for i := 1; i < 12; i++ {
		labels = append(labels, nullLabel)
	}
	want := append(append(words, tags...), labels...)

	require.Equal(t, want, dicts.Features(c))
}

func TestDictionaries_FeaturesLength(t *testing.T) {
	sentences, trees := dogsChaseCats()
	dicts, err := BuildDictionaries(sentences, trees, 1)
	require.NoError(t, err)
	system := transition.NewArcStandard(dicts.ArcLabels())

	c := system.Initial(sentences[0])
	require.Len(t, dicts.Features(c), NumTokens)
	for !system.IsTerminal(c) {
		c, err = system.Apply(c, system.Oracle(c, trees[0]))
		require.NoError(t, err)
		features := dicts.Features(c)
		require.Len(t, features, NumTokens)
		for _, id := range features {
			require.True(t, id >= 0 && id < dicts.Size())
		}
	}

	empty := system.Initial(transition.Sentence{})
	require.Len(t, dicts.Features(empty), NumTokens)
}

func TestDictionaries_UnknownEntries(t *testing.T) {
	sentences, trees := dogsChaseCats()
	dicts, err := BuildDictionaries(sentences, trees, 1)
	require.NoError(t, err)
	system := transition.NewArcStandard(dicts.ArcLabels())

	c := system.Initial(transition.Sentence{{Word: "Cows", POS: "NNP"}})
	features := dicts.Features(c)
	require.Equal(t, dicts.WordID(Unknown), features[3])
	require.Equal(t, dicts.POSID(Unknown), features[numNodeFeatures+3])
	require.Equal(t, dicts.LabelID(Null), dicts.LabelID("acl"))
}

func TestBuildDictionaries(t *testing.T) {
	sentences := []transition.Sentence{
		{{Word: "a", POS: "DT"}, {Word: "dog", POS: "NN"}, {Word: "runs", POS: "VBZ"}},
		{{Word: "a", POS: "DT"}, {Word: "cat", POS: "NN"}, {Word: "sleeps", POS: "VBZ"}, {Word: "a", POS: "DT"}},
	}
	trees := []*transition.Tree{
		transition.NewTreeFrom([]int{2, 3, 0}, []string{"det", "nsubj", "ROOT"}),
		transition.NewTreeFrom([]int{2, 3, 0, 3}, []string{"det", "nsubj", "ROOT", "dep"}),
	}

	dicts, err := BuildDictionaries(sentences, trees, 2)
	require.NoError(t, err)
	require.Equal(t, []string{Unknown, Null, Root, "a"}, dicts.Words.Names)
	require.Equal(t, []string{Unknown, Null, Root, "DT", "NN", "VBZ"}, dicts.POS.Names)
	require.Equal(t, []string{Null, "ROOT", "det", "nsubj", "dep"}, dicts.Labels.Names)
	require.Equal(t, "ROOT", dicts.RootLabel())
	require.Equal(t, []string{"ROOT", "det", "nsubj", "dep"}, dicts.ArcLabels())
	require.NoError(t, dicts.Validate())

	require.Equal(t, 3, dicts.WordID("a"))
	require.Equal(t, 0, dicts.WordID("dog"))
	require.Equal(t, 4+4, dicts.POSID("NN"))
	require.Equal(t, 4+6+1, dicts.LabelID("ROOT"))
	require.Equal(t, 15, dicts.Size())

	_, err = BuildDictionaries(nil, nil, 1)
	require.Error(t, err)
}
