package model

import "nndep/pkg/transition"

const (
	numNodeFeatures  = 18
	numLabelFeatures = 12

	// NumTokens is the number of feature slots extracted from a configuration.
	NumTokens = 2*numNodeFeatures + numLabelFeatures
)

// Features maps a configuration to NumTokens global dictionary ids:
// 18 word ids, then the 18 POS ids of the same nodes, then 12 label ids.
//
// The nodes are s2 s1 s0, b0 b1 b2 and, for s0 then s1, the leftmost child, rightmost
// child, second leftmost child, second rightmost child, leftmost child of the leftmost
// child and rightmost child of the rightmost child. Labels are taken from the 12 child nodes.
func (d *Dictionaries) Features(c *transition.Configuration) []int {
	features := make([]int, NumTokens)
	words := features[:numNodeFeatures]
	tags := features[numNodeFeatures : 2*numNodeFeatures]
	labels := features[2*numNodeFeatures:]

	n, l := 0, 0
	node := func(k int) {
		words[n], tags[n] = d.nodeIDs(c, k)
		n++
	}
	child := func(k int) {
		node(k)
		label := Null
		if k != transition.None {
			label = c.Tree.Label(k)
		}
		labels[l] = d.LabelID(label)
		l++
	}

	for j := 2; j >= 0; j-- {
		node(c.Stack(j))
	}
	for j := 0; j <= 2; j++ {
		node(c.Buffer(j))
	}
	for j := 0; j <= 1; j++ {
		k := c.Stack(j)
		child(c.LeftChild(k, 1))
		child(c.RightChild(k, 1))
		child(c.LeftChild(k, 2))
		child(c.RightChild(k, 2))
		child(c.LeftChild(c.LeftChild(k, 1), 1))
		child(c.RightChild(c.RightChild(k, 1), 1))
	}
	return features
}

// nodeIDs returns the word and POS ids of node k. Missing nodes and the root node both
// map to the null entries.
func (d *Dictionaries) nodeIDs(c *transition.Configuration, k int) (int, int) {
	token, ok := c.Token(k)
	if !ok {
		return d.WordID(Null), d.POSID(Null)
	}
	return d.WordID(token.Word), d.POSID(token.POS)
}
