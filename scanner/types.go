package scanner

import (
	"errors"
	"io"

	"imagededup/types"
)

// ErrInvalidDirectory is returned when the scan target is not a directory
var ErrInvalidDirectory = errors.New("not a valid directory")

// ScanOptions defines the options for a run
type ScanOptions struct {
	FolderPath string
	DryRun     bool
	MaxWorkers int
	Out        io.Writer
}

// ProcessImageResult reports the fingerprinting outcome of one file
type ProcessImageResult struct {
	Path  string
	Error error
}

// Summary holds the counters printed at the end of a run
type Summary struct {
	ImagesFound       int
	Groups            int
	ExactGroups       int
	PerceptualGroups  int
	Kept              int
	Moved             int
	MoveFailures      int
	FingerprintErrors int
	BytesMoved        int64
	Remaining         int
	Decisions         []types.KeepDecision
}
