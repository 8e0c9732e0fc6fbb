// Package source lists the swaps, positions and token holders an epoch is
// computed from, and fetches previously published reward artifacts.
package source

import "incentiveScope/internal/epoch"

// Source combines the subgraph listings with the holder scan.
type Source struct {
	*Subgraph
	*HolderScanner
}

var _ epoch.Source = Source{}
