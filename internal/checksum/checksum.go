// Package checksum fingerprints vault files so unchanged notes are skipped on import.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

var crlf = []byte("\r\n")

// Sum returns the hex-encoded SHA-256 digest of data. CRLF line endings are
// folded to LF first; a file differing only in line endings has the same sum.
func Sum(data []byte) string {
	h := sha256.New()
	for {
		i := bytes.Index(data, crlf)
		if i < 0 {
			h.Write(data)
			break
		}
		h.Write(data[:i])
		h.Write(crlf[1:])
		data = data[i+2:]
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Equal reports whether sum is the checksum of data.
func Equal(sum string, data []byte) bool {
	return sum != "" && sum == Sum(data)
}
