package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// Fingerprint hashes the images, annotations and categories so that two
// datasets with the same records in the same order share a fingerprint.
// Header fields and the source path do not contribute.
func (d *Dataset) Fingerprint() (string, error) {
	parts := make([]string, 3)
	for i, v := range []any{d.Images, d.Annotations, d.Categories} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		h := sha256.Sum256(b)
		parts[i] = hex.EncodeToString(h[:])
	}
	data := fmt.Sprintf("%s|%s|%s", parts[0], parts[1], parts[2])
	final := sha256.Sum256([]byte(data))
	return hex.EncodeToString(final[:]), nil
}
