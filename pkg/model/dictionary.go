package model

import (
	"errors"
	"fmt"
	"sort"

	"nndep/pkg/transition"
)

// Reserved dictionary entries.
const (
	Unknown = "-UNKNOWN-"
	Null    = "-NULL-"
	Root    = "-ROOT-"
)

// Dictionary implements a bidirectional mapping between a name and its position
type Dictionary struct {
	Names []string
	index map[string]int
}

func NewDictionary(names ...string) *Dictionary {
	d := &Dictionary{index: make(map[string]int, len(names))}
	for _, name := range names {
		d.Add(name)
	}
	return d
}

// Add appends name unless it is already present and returns its index.
func (d *Dictionary) Add(name string) int {
	if index, ok := d.index[name]; ok {
		return index
	}
	d.index[name] = len(d.Names)
	d.Names = append(d.Names, name)
	return len(d.Names) - 1
}

func (d *Dictionary) Index(name string) (int, bool) {
	index, ok := d.index[name]
	return index, ok
}

func (d *Dictionary) Name(index int) string {
	return d.Names[index]
}

func (d *Dictionary) Size() int {
	return len(d.Names)
}

// Dictionaries holds the word, POS and label vocabularies. Their entries share a single
// id space, in that order, which indexes the rows of the embedding matrix.
type Dictionaries struct {
	Words  *Dictionary
	POS    *Dictionary
	Labels *Dictionary
}

// Size returns the number of entries over the three dictionaries.
func (d *Dictionaries) Size() int {
	return d.Words.Size() + d.POS.Size() + d.Labels.Size()
}

// WordID returns the global id of word, falling back to the unknown word.
func (d *Dictionaries) WordID(word string) int {
	if index, ok := d.Words.Index(word); ok {
		return index
	}
	index, _ := d.Words.Index(Unknown)
	return index
}

// POSID returns the global id of pos, falling back to the unknown tag.
func (d *Dictionaries) POSID(pos string) int {
	index, ok := d.POS.Index(pos)
	if !ok {
		index, _ = d.POS.Index(Unknown)
	}
	return d.Words.Size() + index
}

// LabelID returns the global id of label, falling back to the null label.
func (d *Dictionaries) LabelID(label string) int {
	index, ok := d.Labels.Index(label)
	if !ok {
		index, _ = d.Labels.Index(Null)
	}
	return d.Words.Size() + d.POS.Size() + index
}

// RootLabel returns the label of arcs headed by the root node.
func (d *Dictionaries) RootLabel() string {
	return d.Labels.Name(1)
}

// ArcLabels returns the labels a transition can assign, root label first.
func (d *Dictionaries) ArcLabels() []string {
	labels := make([]string, d.Labels.Size()-1)
	copy(labels, d.Labels.Names[1:])
	return labels
}

// Validate checks that the reserved entries sit at their fixed positions.
func (d *Dictionaries) Validate() error {
	for _, dict := range []struct {
		name string
		d    *Dictionary
	}{{"word", d.Words}, {"pos", d.POS}} {
		if dict.d.Size() < 3 || dict.d.Names[0] != Unknown || dict.d.Names[1] != Null || dict.d.Names[2] != Root {
			return fmt.Errorf("%s dictionary must start with %s %s %s", dict.name, Unknown, Null, Root)
		}
	}
	if d.Labels.Size() < 2 || d.Labels.Names[0] != Null {
		return fmt.Errorf("label dictionary must start with %s and the root label", Null)
	}
	return nil
}

var errNoRootLabel = errors.New("no token attached to the root")

// BuildDictionaries collects the vocabularies of a treebank. Words seen fewer than
// wordCutOff times are left out; POS tags and labels are kept whatever their frequency.
// Entries are sorted by decreasing frequency, ties keep the order of first occurrence.
func BuildDictionaries(sentences []transition.Sentence, trees []*transition.Tree, wordCutOff int) (*Dictionaries, error) {
	var words, tags, labels []string
	for _, sentence := range sentences {
		for _, token := range sentence {
			words = append(words, token.Word)
			tags = append(tags, token.POS)
		}
	}

	rootLabel := ""
	for _, tree := range trees {
		for k := 1; k <= tree.Len(); k++ {
			if tree.Head(k) == transition.Root {
				rootLabel = tree.Label(k)
			} else {
				labels = append(labels, tree.Label(k))
			}
		}
	}
	if rootLabel == "" {
		return nil, errNoRootLabel
	}

	d := &Dictionaries{
		Words:  NewDictionary(append([]string{Unknown, Null, Root}, sortedByFrequency(words, wordCutOff)...)...),
		POS:    NewDictionary(append([]string{Unknown, Null, Root}, sortedByFrequency(tags, 1)...)...),
		Labels: NewDictionary(append([]string{Null, rootLabel}, sortedByFrequency(labels, 1)...)...),
	}
	return d, nil
}

func sortedByFrequency(values []string, cutOff int) []string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	result := order[:0]
	for _, v := range order {
		if counts[v] >= cutOff {
			result = append(result, v)
		}
	}
	return result
}
