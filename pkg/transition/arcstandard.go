package transition

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a transition is applied to a configuration that
// does not allow it.
var ErrIllegalTransition = errors.New("illegal transition")

type Kind int

const (
	LeftArc Kind = iota
	RightArc
	Shift
)

// Transition is a SHIFT or a labeled LEFT-ARC / RIGHT-ARC.
type Transition struct {
	Kind  Kind
	Label string
}

func (t Transition) String() string {
	switch t.Kind {
	case LeftArc:
		return "L(" + t.Label + ")"
	case RightArc:
		return "R(" + t.Label + ")"
	default:
		return "S"
	}
}

// ArcStandard is the arc-standard transition system:
//
//	LEFT-ARC(l)   (S|s1|s0, B, A) => (S|s0, B, A+{(s0,l,s1)})   if s1 != root
//	RIGHT-ARC(l)  (S|s1|s0, B, A) => (S|s1, B, A+{(s1,l,s0)})
//	SHIFT         (S, b0|B, A)    => (S|b0, B, A)
//
// Transitions are ordered as all LEFT-ARCs, then all RIGHT-ARCs, then SHIFT, with labels
// in the order given to NewArcStandard. The first label is the root label, the only label
// allowed on an arc headed by the root node.
type ArcStandard struct {
	Labels      []string
	RootLabel   string
	Transitions []Transition
	index       map[Transition]int
}

// NewArcStandard builds the transition set for labels, whose first entry is the root label.
func NewArcStandard(labels []string) *ArcStandard {
	a := &ArcStandard{
		Labels:      labels,
		Transitions: make([]Transition, 0, 2*len(labels)+1),
		index:       make(map[Transition]int, 2*len(labels)+1),
	}
	if len(labels) > 0 {
		a.RootLabel = labels[0]
	}
	for _, l := range labels {
		a.add(Transition{Kind: LeftArc, Label: l})
	}
	for _, l := range labels {
		a.add(Transition{Kind: RightArc, Label: l})
	}
	a.add(Transition{Kind: Shift})
	return a
}

func (a *ArcStandard) add(t Transition) {
	a.index[t] = len(a.Transitions)
	a.Transitions = append(a.Transitions, t)
}

// NumTransitions returns the size of the transition set.
func (a *ArcStandard) NumTransitions() int {
	return len(a.Transitions)
}

// Index returns the position of t in the transition set.
func (a *ArcStandard) Index(t Transition) (int, bool) {
	i, ok := a.index[t]
	return i, ok
}

// Initial returns the configuration with the root on the stack and every token in the buffer.
func (a *ArcStandard) Initial(sentence Sentence) *Configuration {
	return newConfiguration(sentence)
}

// IsTerminal reports whether the buffer is empty and only the root is left on the stack.
func (a *ArcStandard) IsTerminal(c *Configuration) bool {
	return c.BufferSize() == 0 && c.StackSize() == 1
}

// CanApply reports whether t is legal in c.
func (a *ArcStandard) CanApply(c *Configuration, t Transition) bool {
	nStack, nBuffer := c.StackSize(), c.BufferSize()
	switch t.Kind {
	case LeftArc:
		return nStack > 2
	case RightArc:
		if nStack == 2 && nBuffer == 0 {
			// only the root is left to attach to
			return t.Label == a.RootLabel
		}
		return nStack > 2
	case Shift:
		return nBuffer > 0
	}
	return false
}

// Apply returns the configuration reached by applying t to c.
func (a *ArcStandard) Apply(c *Configuration, t Transition) (*Configuration, error) {
	if !a.CanApply(c, t) {
		return nil, fmt.Errorf("%w: %s in %s", ErrIllegalTransition, t, c)
	}
	next := c.copy()
	s0, s1 := c.Stack(0), c.Stack(1)
	switch t.Kind {
	case LeftArc:
		next.Tree.Set(s1, s0, t.Label)
		next.stack = append(next.stack[:len(next.stack)-2], s0)
	case RightArc:
		next.Tree.Set(s0, s1, t.Label)
		next.stack = next.stack[:len(next.stack)-1]
	case Shift:
		next.stack = append(next.stack, next.next)
		next.next++
	}
	return next, nil
}

// Oracle returns the static arc-standard oracle transition for c towards gold.
func (a *ArcStandard) Oracle(c *Configuration, gold *Tree) Transition {
	s0, s1 := c.Stack(0), c.Stack(1)
	switch {
	case s1 > 0 && gold.Head(s1) == s0:
		return Transition{Kind: LeftArc, Label: gold.Label(s1)}
	case s1 >= 0 && gold.Head(s0) == s1 && !c.HasOtherChild(s0, gold):
		return Transition{Kind: RightArc, Label: gold.Label(s0)}
	default:
		return Transition{Kind: Shift}
	}
}

// Derive replays the oracle for 2n steps and returns the visited transitions.
func (a *ArcStandard) Derive(sentence Sentence, gold *Tree) ([]Transition, *Configuration, error) {
	c := a.Initial(sentence)
	transitions := make([]Transition, 0, 2*len(sentence))
	for k := 0; k < 2*len(sentence); k++ {
		t := a.Oracle(c, gold)
		next, err := a.Apply(c, t)
		if err != nil {
			return transitions, c, fmt.Errorf("oracle step %d: %w", k, err)
		}
		transitions = append(transitions, t)
		c = next
	}
	return transitions, c, nil
}
