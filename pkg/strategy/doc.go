// Package strategy decides which torrents of a snapshot to remove.
//
// A [Strategy] runs one of two evaluation paths, chosen when it is built:
//
//   - [KindExpression] parses a condition expression such as
//     "ratio > 2 or seeding_time > 86400" and evaluates it with a
//     [condition.Registry].
//   - [KindRemoteOverride] ignores expressions entirely and asks a remote
//     hit-and-run service which torrents may go, through an [hnr.Condition].
//
// Either path may be narrowed by a CEL candidate filter (see [expr.Filter]).
// Torrents outside the filter always remain.
//
// [Strategy.Apply] returns a [Result] whose Remove and Remain sets partition
// the snapshot. When evaluation fails it returns the conservative result,
// removing nothing, together with the error.
package strategy
