package perfcache

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tushar1003/deckgen/errors"
)

// DeriveKey derives the cache key for a namespace and arbitrary key data.
// Key data may be a string, a slice, a map, or any JSON-serializable value.
// Non-string key data is canonicalized through encoding/json, which sorts map
// keys, so logically equal mappings always derive the same key regardless of
// insertion order. The result is "<namespace>:<16 hex chars>".
//
// DeriveKey is pure: equal inputs always produce equal keys.
func DeriveKey(namespace string, keyData any) (string, error) {
	if namespace == "" {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "keycodec", "DeriveKey", "namespace cannot be empty")
	}
	if strings.Contains(namespace, ":") {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "keycodec", "DeriveKey", "namespace cannot contain ':'")
	}

	var keyString string
	switch k := keyData.(type) {
	case string:
		keyString = k
	case []byte:
		keyString = string(k)
	default:
		canonical, err := json.Marshal(keyData)
		if err != nil {
			return "", errors.WrapInvalid(err, "keycodec", "DeriveKey", "canonicalize key data")
		}
		keyString = string(canonical)
	}

	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64String(keyString)), nil
}

// namespaceOf returns the namespace prefix of a derived cache key.
func namespaceOf(key string) string {
	if idx := strings.IndexByte(key, ':'); idx >= 0 {
		return key[:idx]
	}
	return key
}
