package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// ExactDigest is the 128-bit content hash of a file
type ExactDigest [16]byte

func (d ExactDigest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseExactDigest decodes the hex form produced by ExactDigest.String
func ParseExactDigest(s string) (ExactDigest, error) {
	var d ExactDigest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid exact digest %q: %w", s, err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid exact digest %q: want %d bytes, got %d", s, len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// PerceptualHash is a 64-bit average hash. Bit 63 holds the first sample of
// the 8x8 grid in row-major order, bit 0 the last.
type PerceptualHash uint64

func (h PerceptualHash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// ParsePerceptualHash decodes the hex form produced by PerceptualHash.String
func ParsePerceptualHash(s string) (PerceptualHash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid perceptual hash %q: %w", s, err)
	}
	return PerceptualHash(v), nil
}

// ImageRecord holds everything learned about one scanned file.
// A nil digest means that fingerprint could not be computed.
type ImageRecord struct {
	Path       string
	Size       int64
	ModTime    time.Time
	Exact      *ExactDigest
	Perceptual *PerceptualHash
	Width      int
	Height     int
}

// Resolution returns the pixel count, 0 when the dimensions are unknown
func (r ImageRecord) Resolution() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// DetectionMethod tells which fingerprint produced a group
type DetectionMethod int

const (
	MethodExact DetectionMethod = iota
	MethodPerceptual
)

func (m DetectionMethod) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodPerceptual:
		return "perceptual"
	default:
		return "unknown"
	}
}

// DuplicateGroup is a set of two or more records sharing a digest
type DuplicateGroup struct {
	Key     string
	Method  DetectionMethod
	Members []ImageRecord
}

// Paths returns the member paths in group order
func (g DuplicateGroup) Paths() []string {
	paths := make([]string, len(g.Members))
	for i, m := range g.Members {
		paths[i] = m.Path
	}
	return paths
}

// KeepDecision is the outcome of arbitration for one group
type KeepDecision struct {
	Group  DuplicateGroup
	Keeper ImageRecord
	Losers []ImageRecord
}
