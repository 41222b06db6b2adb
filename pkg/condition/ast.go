package condition

// Node is a node of a parsed expression: [*Leaf], [*Binary] or [*Group].
type Node interface {
	// String renders the node back into expression syntax.
	String() string

	node()
}

// BoolOp combines the results of two sub-expressions.
type BoolOp int

const (
	And BoolOp = iota + 1 // Set intersection.
	Or                    // Set union.
)

func (op BoolOp) String() string {
	if op == And {
		return "and"
	}

	return "or"
}

// Leaf is a single comparison.
type Leaf struct {
	Spec Spec
	Pos  int
}

// Binary joins two sub-expressions with `and` or `or`.
type Binary struct {
	Left  Node
	Right Node
	Op    BoolOp
}

// Group is a parenthesized sub-expression.
type Group struct {
	Inner Node
}

func (*Leaf) node()   {}
func (*Binary) node() {}
func (*Group) node()  {}

func (n *Leaf) String() string {
	return n.Spec.String()
}

// String does not add parentheses: the left operand of a chain needs none
// because every combinator associates to the left.
func (n *Binary) String() string {
	return n.Left.String() + " " + n.Op.String() + " " + n.Right.String()
}

func (n *Group) String() string {
	return "(" + n.Inner.String() + ")"
}

// Leaves returns every comparison in the tree, left to right.
func Leaves(n Node) []*Leaf {
	var out []*Leaf

	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Leaf:
			out = append(out, n)
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		case *Group:
			walk(n.Inner)
		}
	}
	walk(n)

	return out
}
