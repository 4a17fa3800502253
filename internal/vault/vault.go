package vault

import "github.com/juju/errors"

// ErrKeyNotFound is returned by Get and Delete for unknown keys.
const ErrKeyNotFound = errors.ConstError("key not found")

// Vault provides secure storage for session secrets.
type Vault interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
	List() ([]string, error)
}

// Mask hides the middle of a secret for display.
func Mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
