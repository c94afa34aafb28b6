package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key builds a namespaced cache key by hashing the components, e.g.
// examples:3f2a... The full SHA-256 keeps distinct inputs from colliding.
func Key(namespace string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(hash[:]))
}

// ExampleKey identifies one example-retrieval result by diagram type and
// communicative intent.
func ExampleKey(diagramType, intent string) string {
	return Key("examples", diagramType, intent)
}

// Hash computes the SHA-256 of data as a 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
