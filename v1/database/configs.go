package database

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// TLSMode is the transport encryption and verification policy.
type TLSMode string

const (
	TLSDisable    TLSMode = "disable"
	TLSRequire    TLSMode = "require"
	TLSVerifyCA   TLSMode = "verify-ca"
	TLSVerifyFull TLSMode = "verify-full"
)

// Valid reports whether m is one of the known modes.
func (m TLSMode) Valid() bool {
	switch m {
	case TLSDisable, TLSRequire, TLSVerifyCA, TLSVerifyFull:
		return true
	}
	return false
}

// DefaultTLSMode returns disable for local hosts and require for remote ones.
// Local means empty, "localhost", a loopback address or a unix socket path.
func DefaultTLSMode(host string) TLSMode {
	h := strings.TrimSpace(host)
	switch {
	case h == "", strings.EqualFold(h, "localhost"), strings.HasPrefix(h, "/"):
		return TLSDisable
	}
	if ip := net.ParseIP(strings.Trim(h, "[]")); ip != nil && ip.IsLoopback() {
		return TLSDisable
	}
	return TLSRequire
}

// ConnectionContext identifies how to reach a server. It is passed by value
// and must not change once a connection attempt has started.
type ConnectionContext struct {
	ID       string  `json:"id" yaml:"id" mapstructure:"id"`
	Driver   string  `json:"driver" yaml:"driver" mapstructure:"driver"`
	Host     string  `json:"host" yaml:"host" mapstructure:"host"`
	Port     int     `json:"port" yaml:"port" mapstructure:"port"`
	Username string  `json:"username" yaml:"username" mapstructure:"username"`
	Database string  `json:"database" yaml:"database" mapstructure:"database"`
	TLSMode  TLSMode `json:"tls_mode,omitempty" yaml:"tls_mode" mapstructure:"tls_mode"`
}

// EffectiveTLSMode returns the user override when set, otherwise the host default.
func (c ConnectionContext) EffectiveTLSMode() TLSMode {
	if c.TLSMode != "" {
		return c.TLSMode
	}
	return DefaultTLSMode(c.Host)
}

// Address returns host:port, or the socket path for unix sockets.
func (c ConnectionContext) Address() string {
	if strings.HasPrefix(c.Host, "/") {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the fields every driver needs.
func (c ConnectionContext) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConnectionContext)
	}
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConnectionContext)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConnectionContext, c.Port)
	}
	if c.TLSMode != "" && !c.TLSMode.Valid() {
		return fmt.Errorf("%w: unknown tls mode %q", ErrInvalidConnectionContext, c.TLSMode)
	}
	return nil
}

// TableRef names a table, optionally qualified by schema.
type TableRef struct {
	Schema string `json:"schema,omitempty" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
}

// ID returns "schema.table", or just the table name when unqualified.
func (r TableRef) ID() string {
	if r.Schema == "" {
		return r.Table
	}
	return r.Schema + "." + r.Table
}

func (r TableRef) String() string {
	return r.ID()
}

// IsZero reports whether no table is named.
func (r TableRef) IsZero() bool {
	return r.Table == ""
}

// ParseTableRef splits "schema.table" at the first dot. Surrounding quotes
// and backticks on either part are removed.
func ParseTableRef(s string) TableRef {
	s = strings.TrimSpace(s)
	schema, table, ok := strings.Cut(s, ".")
	if !ok {
		return TableRef{Table: unquoteIdent(s)}
	}
	return TableRef{Schema: unquoteIdent(schema), Table: unquoteIdent(table)}
}

func unquoteIdent(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '`' && last == '`') || (first == '[' && last == ']') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
