// Package torrent defines the torrent data model shared by the condition
// engine and the strategies: [Torrent] attribute bags keyed by info-hash,
// identifier [Set]s and the read-only [Snapshot] that a download client
// adapter supplies for one evaluation pass.
package torrent
