// Package hnr looks up hit-and-run (HNR) status for torrents from a remote
// tracker API and partitions a snapshot by it.
//
// A torrent's HNR obligation is satisfied when the tracker reports one of the
// configured status codes for it (20 and 21 by default). The remote API is
// queried in bounded batches; a failure on any batch fails the whole lookup.
package hnr
