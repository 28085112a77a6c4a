// Package observability defines the optional hook through which the
// connection manager and query engine report completed operations.
//
// Components accept an Observer and call it once per operation. A nil
// observer is valid and means "report nothing"; metrics.Metrics is the
// production implementation.
package observability

import "time"

// OperationContext describes one finished operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "connection" or "query".
	Component string

	// Operation is the verb, e.g. "connect", "execute", "delete_rows".
	Operation string

	// Resource is the primary subject: connection id or table identity.
	Resource string

	// SubResource gives extra context such as the tab id.
	SubResource string

	Duration time.Duration

	// Error is nil on success.
	Error error

	// Status overrides the label derived from Error, e.g. "timeout" or
	// "cancelled". Leave empty to derive it.
	Status string

	// Size is the number of rows returned or affected, when meaningful.
	Size int64

	Metadata map[string]interface{}
}

// Observer receives operation reports. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// StatusLabel returns the outcome label used in metrics and logs.
func (c OperationContext) StatusLabel() string {
	if c.Status != "" {
		return c.Status
	}
	if c.Error == nil {
		return "success"
	}
	return "error"
}
