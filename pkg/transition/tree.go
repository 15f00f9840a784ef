package transition

const (
	// Root is the index of the synthetic root node.
	Root = 0
	// None marks a missing node or an unassigned head.
	None = -1
)

// Token is a single tagged word of a sentence.
type Token struct {
	Word string
	POS  string
}

// Sentence is an ordered sequence of tagged tokens. Token k of a tree is Sentence[k-1].
type Sentence []Token

// Tree is a labeled dependency tree over the tokens 1..n of a sentence.
type Tree struct {
	heads  []int
	labels []string
}

// NewTree returns a tree of n tokens with no head assigned.
func NewTree(n int) *Tree {
	t := &Tree{
		heads:  make([]int, n),
		labels: make([]string, n),
	}
	for i := range t.heads {
		t.heads[i] = None
	}
	return t
}

// NewTreeFrom builds a tree from 1-indexed heads and labels stored in 0-based slices.
func NewTreeFrom(heads []int, labels []string) *Tree {
	t := &Tree{
		heads:  make([]int, len(heads)),
		labels: make([]string, len(heads)),
	}
	copy(t.heads, heads)
	copy(t.labels, labels)
	return t
}

// Len returns the number of tokens.
func (t *Tree) Len() int {
	return len(t.heads)
}

// Head returns the head of token k, or None if k is not a token.
func (t *Tree) Head(k int) int {
	if k <= 0 || k > len(t.heads) {
		return None
	}
	return t.heads[k-1]
}

// Label returns the label of token k, or the empty string if k is not a token.
func (t *Tree) Label(k int) string {
	if k <= 0 || k > len(t.labels) {
		return ""
	}
	return t.labels[k-1]
}

// Set attaches token k to head with the given label.
func (t *Tree) Set(k, head int, label string) {
	t.heads[k-1] = head
	t.labels[k-1] = label
}

func (t *Tree) Copy() *Tree {
	return NewTreeFrom(t.heads, t.labels)
}

// Equal reports whether both trees assign the same heads and labels.
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i := range t.heads {
		if t.heads[i] != other.heads[i] || t.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// IsTree reports whether every token has a head, exactly one token is attached to the
// root and following heads from any token reaches the root.
func (t *Tree) IsTree() bool {
	n := len(t.heads)
	rootChildren := 0
	for _, h := range t.heads {
		if h < 0 || h > n {
			return false
		}
		if h == Root {
			rootChildren++
		}
	}
	if rootChildren != 1 {
		return false
	}
	visited := make([]int, n+1)
	for i := 1; i <= n; i++ {
		// a token is marked with the walk that visited it; revisiting within a walk is a cycle
		for k := i; k != Root; k = t.heads[k-1] {
			if visited[k] == i {
				return false
			}
			if visited[k] != 0 {
				break
			}
			visited[k] = i
		}
	}
	return true
}

// IsProjective reports whether the tree has no crossing arcs. Non-trees are never projective.
func (t *Tree) IsProjective() bool {
	if !t.IsTree() {
		return false
	}
	counter := -1
	return t.visitInOrder(Root, &counter)
}

// visitInOrder walks the subtree of k in order and checks that its tokens are met in
// sentence order, which holds exactly when no arc crosses another.
func (t *Tree) visitInOrder(k int, counter *int) bool {
	for i := 1; i < k; i++ {
		if t.heads[i-1] == k && !t.visitInOrder(i, counter) {
			return false
		}
	}
	*counter++
	if k != *counter {
		return false
	}
	for i := k + 1; i <= len(t.heads); i++ {
		if t.heads[i-1] == k && !t.visitInOrder(i, counter) {
			return false
		}
	}
	return true
}
