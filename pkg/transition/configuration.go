package transition

import (
	"fmt"
	"strings"
)

// Configuration is the parser state: a stack whose bottom is the root node, a buffer
// holding the tokens next..n and the arcs built so far.
//
// Transitions never modify a configuration, they return a new one.
type Configuration struct {
	Sentence Sentence
	Tree     *Tree
	stack    []int
	next     int
}

func newConfiguration(sentence Sentence) *Configuration {
	return &Configuration{
		Sentence: sentence,
		Tree:     NewTree(len(sentence)),
		stack:    []int{Root},
		next:     1,
	}
}

func (c *Configuration) copy() *Configuration {
	stack := make([]int, len(c.stack), len(c.stack)+1)
	copy(stack, c.stack)
	return &Configuration{
		Sentence: c.Sentence,
		Tree:     c.Tree.Copy(),
		stack:    stack,
		next:     c.next,
	}
}

// StackSize returns the number of stack entries, including the root node.
func (c *Configuration) StackSize() int {
	return len(c.stack)
}

// BufferSize returns the number of tokens left in the buffer.
func (c *Configuration) BufferSize() int {
	return len(c.Sentence) - c.next + 1
}

// Stack returns the k-th stack entry counted from the top, or None.
func (c *Configuration) Stack(k int) int {
	if k < 0 || k >= len(c.stack) {
		return None
	}
	return c.stack[len(c.stack)-1-k]
}

// Buffer returns the k-th buffer entry counted from the front, or None.
func (c *Configuration) Buffer(k int) int {
	if k < 0 || k >= c.BufferSize() {
		return None
	}
	return c.next + k
}

// Token returns the token at node k. The second result is false for the root node and
// for nodes that do not exist.
func (c *Configuration) Token(k int) (Token, bool) {
	if k <= 0 || k > len(c.Sentence) {
		return Token{}, false
	}
	return c.Sentence[k-1], true
}

// LeftChild returns the cnt-th leftmost child of k (cnt starts at 1), or None.
func (c *Configuration) LeftChild(k, cnt int) int {
	if k < 0 || k > c.Tree.Len() {
		return None
	}
	found := 0
	for i := 1; i < k; i++ {
		if c.Tree.Head(i) == k {
			found++
			if found == cnt {
				return i
			}
		}
	}
	return None
}

// RightChild returns the cnt-th rightmost child of k (cnt starts at 1), or None.
func (c *Configuration) RightChild(k, cnt int) int {
	if k < 0 || k > c.Tree.Len() {
		return None
	}
	found := 0
	for i := c.Tree.Len(); i > k; i-- {
		if c.Tree.Head(i) == k {
			found++
			if found == cnt {
				return i
			}
		}
	}
	return None
}

// HasOtherChild reports whether k has a child in gold that is not attached to it yet.
func (c *Configuration) HasOtherChild(k int, gold *Tree) bool {
	for i := 1; i <= gold.Len(); i++ {
		if gold.Head(i) == k && c.Tree.Head(i) != k {
			return true
		}
	}
	return false
}

func (c *Configuration) String() string {
	var b strings.Builder
	b.WriteString("stack=[")
	for i, s := range c.stack {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", s)
	}
	b.WriteString("] buffer=[")
	for i := 0; i < c.BufferSize(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", c.Buffer(i))
	}
	b.WriteByte(']')
	return b.String()
}
