package metrics

import (
	"github.com/Aleph-Alpha/workbench/v1/observability"
)

// Collector is what the session core needs from metrics: the operation
// observer plus the two gauges the tab synchronizer maintains.
//
// This interface is implemented by the concrete *Metrics type.
type Collector interface {
	observability.Observer

	// SetLiveConnections sets the number of tabs holding a live handle.
	SetLiveConnections(n int)

	// SetOpenTabs sets the number of tabs in memory.
	SetOpenTabs(n int)
}

var _ Collector = (*Metrics)(nil)
