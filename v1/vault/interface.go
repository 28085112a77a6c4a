// Package vault stores connection passwords by connection id.
//
// Keyring keeps them in the operating system credential store through
// github.com/zalando/go-keyring; Memory is a process-local map used in
// tests and for throwaway sessions.
//
// Read failures are not fatal to connecting: the connection manager logs
// them and continues with an empty password. Explicit saves through the
// CLI treat errors as fatal.
package vault

// Vault is a credential store keyed by connection id.
type Vault interface {
	// Get returns the secret for id, or ErrNotFound.
	Get(id string) (string, error)

	// Set stores or replaces the secret for id.
	Set(id, secret string) error

	// Delete removes the secret for id. Deleting a missing id returns ErrNotFound.
	Delete(id string) error
}
