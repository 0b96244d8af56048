package contenthash

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// HexLength is the length of a digest rendered by Sum.
const HexLength = 64

// Sum returns the lower-case hex BLAKE3-256 digest of data.
func Sum(data []byte) string {
	digest := blake3.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// Name returns the content-addressed file name for data with the given
// extension (including its leading dot, or empty).
func Name(data []byte, ext string) string {
	return Sum(data) + ext
}

// SumReader hashes everything read from r and reports the number of bytes consumed.
func SumReader(r io.Reader) (string, int64, error) {
	hasher := blake3.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", n, fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// Valid reports whether value looks like a digest produced by Sum.
func Valid(value string) bool {
	if len(value) != HexLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
