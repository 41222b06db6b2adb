// Package expr provides CEL (Common Expression Language) functionality
// for selecting torrents.
//
// It creates CEL environments with custom functions for:
//   - Glob matching (glob)
//   - Tracker URL handling (trackerHost)
//
// CEL expressions have access to variables:
//   - `torrent` (map<string, dyn>): The attributes of the torrent being tested
//   - `status` (map<string, dyn>): The client-wide status of the snapshot
//   - `now` (int): The snapshot's reference time in Unix seconds
package expr
