package database

import (
	"context"
	"fmt"
	"sort"
)

// Registry dispatches Connect to the driver named by the connection context.
// It is itself a Driver.
type Registry struct {
	drivers  map[string]Driver
	fallback string
}

// NewRegistry registers drivers by Name. The first driver is used for
// contexts that leave Driver empty.
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver, len(drivers))}
	for _, d := range drivers {
		if d == nil {
			continue
		}
		if r.fallback == "" {
			r.fallback = d.Name()
		}
		r.drivers[d.Name()] = d
	}
	return r
}

// Name implements Driver.
func (r *Registry) Name() string {
	return "registry"
}

// Lookup returns the driver registered under name; empty selects the default.
func (r *Registry) Lookup(name string) (Driver, error) {
	if name == "" {
		name = r.fallback
	}
	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return d, nil
}

// Names lists the registered driver names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Connect implements Driver.
func (r *Registry) Connect(ctx context.Context, cc ConnectionContext, password string) (Handle, error) {
	d, err := r.Lookup(cc.Driver)
	if err != nil {
		return nil, NewConnectionError(KindUnknown, err)
	}
	return d.Connect(ctx, cc, password)
}
