// Package condition implements the removal condition language.
//
// An expression compares torrent attributes with literals and combines the
// comparisons with `and` / `or`:
//
//	ratio > 2 or seeding_time > 604800
//	(category = "tv" or category = movies) and progress = 100
//
// Numbers are decimals with an optional sign; the integer part may be left
// out, so `ratio > .5` is the same as `ratio > 0.5`.
//
// `and` and `or` share one precedence level and associate to the left, so
// `a or b and c` means `(a or b) and c`. Parentheses are the only way to group
// differently.
//
// Each comparison names a [Condition] from a [Registry]. A condition turns
// the comparison into the set of matching torrents; `and` intersects and `or`
// unions those sets. The result of the whole expression is the set of
// torrents to remove.
//
// Evaluation happens in two passes: [Parse] builds a [Node] tree from the
// token stream of a [Lexer], then [Evaluate] walks the tree against a
// [torrent.Snapshot].
package condition
