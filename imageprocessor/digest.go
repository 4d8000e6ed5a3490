package imageprocessor

import (
	"io"
	"os"

	"imagededup/types"

	"github.com/zeebo/xxh3"
)

const digestChunkSize = 64 * 1024

// ExactDigest streams the file through xxh3-128 in fixed-size chunks.
// Errors wrap ErrUnreadable.
func ExactDigest(path string) (types.ExactDigest, error) {
	var digest types.ExactDigest

	f, err := os.Open(path)
	if err != nil {
		return digest, unreadable(path, err)
	}
	defer f.Close()

	h := xxh3.New()
	buf := make([]byte, digestChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return digest, unreadable(path, err)
		}
	}

	return types.ExactDigest(h.Sum128().Bytes()), nil
}
