package condition

import (
	"context"
	"fmt"

	"github.com/macropower/reap/pkg/torrent"
)

// Evaluate computes the set of torrents selected by the expression tree.
//
// Every comparison is resolved against reg and applied to snap; `and`
// intersects and `or` unions the results. Both operands are always evaluated.
// No partial result is returned on error.
func Evaluate(ctx context.Context, n Node, reg *Registry, snap *torrent.Snapshot) (torrent.Set, error) {
	switch n := n.(type) {
	case *Leaf:
		return evaluateLeaf(ctx, n, reg, snap)

	case *Group:
		return Evaluate(ctx, n.Inner, reg, snap)

	case *Binary:
		left, err := Evaluate(ctx, n.Left, reg, snap)
		if err != nil {
			return nil, err
		}

		right, err := Evaluate(ctx, n.Right, reg, snap)
		if err != nil {
			return nil, err
		}

		if n.Op == And {
			return left.Intersect(right), nil
		}

		return left.Union(right), nil
	}

	return nil, fmt.Errorf("unknown node type %T", n)
}

func evaluateLeaf(ctx context.Context, n *Leaf, reg *Registry, snap *torrent.Snapshot) (torrent.Set, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err //nolint:wrapcheck // Context errors are returned as-is.
	}

	c, err := reg.Lookup(n.Spec.Name)
	if err != nil {
		return nil, err
	}

	set, err := c.Apply(ctx, snap, n.Spec.Op, n.Spec.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Spec, err)
	}

	return set, nil
}

// Validate checks that every comparison in the tree names a registered
// condition, without evaluating anything.
func Validate(n Node, reg *Registry) error {
	for _, leaf := range Leaves(n) {
		_, err := reg.Lookup(leaf.Spec.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

// Compile parses src and validates it against reg.
func Compile(src string, reg *Registry, opts ...LexerOpt) (Node, error) {
	n, err := Parse(src, opts...)
	if err != nil {
		return nil, err
	}

	err = Validate(n, reg)
	if err != nil {
		return nil, err
	}

	return n, nil
}
