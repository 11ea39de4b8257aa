package store

import (
	"crypto/sha256"
	"fmt"
	"iter"
)

// ComputeChecksum hashes a sequence of text fragments. Each fragment is
// written on its own line, so the grouping of fragments affects the result
// but their position in the source does not.
func ComputeChecksum(parts iter.Seq[string]) string {
	h := sha256.New()
	for p := range parts {
		fmt.Fprintf(h, "%s\n", p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ComputeFileHash hashes raw file content.
func ComputeFileHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
