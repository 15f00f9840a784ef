package io

import (
	"math/rand"
	"sort"

	"nndep/pkg/model"
	"nndep/pkg/transition"
)

type DataSet struct {
	Data         []*model.Example
	BatchSize    int
	Rand         *rand.Rand
	dataIndices  []int
	currentOrder []int
	currentIndex int
}

type DatasetOrder int

const (
	OriginalOrder DatasetOrder = iota
	RandomOrder
)

func (d *DataSet) ResetOrder(order DatasetOrder) {
	if d.currentOrder == nil {
		d.currentOrder = make([]int, len(d.dataIndices))
	}
	switch order {
	case OriginalOrder:
		copy(d.currentOrder, d.dataIndices)
	case RandomOrder:
		ind := d.Rand.Perm(len(d.currentOrder))
		for i := range ind {
			d.currentOrder[i] = d.dataIndices[ind[i]]
		}
	}

	d.currentIndex = 0
}

// Next returns the next batch of at most BatchSize examples, or an empty batch once the
// current order is exhausted.
func (d *DataSet) Next() []*model.Example {
	batch := make([]*model.Example, 0, d.BatchSize)
	for ; d.currentIndex < len(d.currentOrder) && len(batch) < d.BatchSize; d.currentIndex++ {
		batch = append(batch, d.Data[d.currentOrder[d.currentIndex]])
	}
	return batch
}

// NextRandom returns the next batch, starting a new random order when the current one is
// exhausted. Examples are drawn without replacement within an order.
func (d *DataSet) NextRandom() []*model.Example {
	batch := d.Next()
	if len(batch) == 0 && d.Size() > 0 {
		d.ResetOrder(RandomOrder)
		batch = d.Next()
	}
	return batch
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

func NewDataSet(data []*model.Example, batchSize int, rnd *rand.Rand) *DataSet {
	dataIndices := make([]int, len(data))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	ds := &DataSet{Data: data, BatchSize: batchSize, Rand: rnd, dataIndices: dataIndices}
	ds.ResetOrder(RandomOrder)
	return ds
}

// ExampleStats counts the trees used or left out when generating examples.
type ExampleStats struct {
	Trees         int
	Examples      int
	NonProjective int
	// Skipped trees are projective but their oracle derivation does not rebuild them,
	// e.g. when a root arc carries a label other than the root label.
	Skipped int
}

// GenerateExamples replays the oracle over every projective tree and records one example
// per step. It also returns how often each precompute key (id*NumTokens+slot) occurs.
func GenerateExamples(dicts *model.Dictionaries, system *transition.ArcStandard,
	sentences []transition.Sentence, trees []*transition.Tree) ([]*model.Example, map[int]int, ExampleStats) {
	var examples []*model.Example
	counts := make(map[int]int)
	stats := ExampleStats{Trees: len(trees)}
	for i, tree := range trees {
		if !tree.IsProjective() {
			stats.NonProjective++
			continue
		}
		sentenceExamples, ok := deriveExamples(dicts, system, sentences[i], tree)
		if !ok {
			stats.Skipped++
			continue
		}
		for _, ex := range sentenceExamples {
			for slot, id := range ex.Features {
				counts[id*model.NumTokens+slot]++
			}
		}
		examples = append(examples, sentenceExamples...)
	}
	stats.Examples = len(examples)
	return examples, counts, stats
}

func deriveExamples(dicts *model.Dictionaries, system *transition.ArcStandard,
	sentence transition.Sentence, gold *transition.Tree) ([]*model.Example, bool) {
	examples := make([]*model.Example, 0, 2*len(sentence))
	c := system.Initial(sentence)
	for k := 0; k < 2*len(sentence); k++ {
		oracle := system.Oracle(c, gold)
		label := make([]int, system.NumTransitions())
		for j, t := range system.Transitions {
			switch {
			case t == oracle:
				label[j] = 1
			case system.CanApply(c, t):
				label[j] = 0
			default:
				label[j] = -1
			}
		}
		if _, ok := system.Index(oracle); !ok {
			return nil, false
		}
		examples = append(examples, &model.Example{Features: dicts.Features(c), Label: label})
		next, err := system.Apply(c, oracle)
		if err != nil {
			return nil, false
		}
		c = next
	}
	if !c.Tree.Equal(gold) {
		return nil, false
	}
	return examples, true
}

// SelectPreComputed returns the k most frequent keys, most frequent first. Ties go to
// the smaller key.
func SelectPreComputed(counts map[int]int, k int) []int {
	keys := make([]int, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	if k < 0 {
		k = 0
	}
	if k < len(keys) {
		keys = keys[:k]
	}
	return keys
}
