package collection

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned when a key string cannot be parsed.
var ErrInvalidKey = errors.New("invalid entity key")

// Key is the identity of an entity within a collection.
// Namespace is optional; when empty the name alone is the identity.
type Key struct {
	Namespace string `cbor:"1,keyasint,omitempty" yaml:"namespace,omitempty"`
	Name      string `cbor:"2,keyasint" yaml:"name"`
}

// NewKey returns a key for name in namespace.
func NewKey(namespace, name string) Key {
	return Key{Namespace: namespace, Name: name}
}

// String renders the key as "namespace/name", or "name" when unqualified.
func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}

// IsZero reports whether the key has no name.
func (k Key) IsZero() bool {
	return k.Name == ""
}

// ParseKey parses "name" or "namespace/name".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	ns, name, found := strings.Cut(s, "/")
	if !found {
		name, ns = ns, ""
	}
	if name == "" || strings.Contains(name, "/") {
		return Key{}, ErrInvalidKey
	}
	if found && ns == "" {
		return Key{}, ErrInvalidKey
	}
	return Key{Namespace: ns, Name: name}, nil
}
