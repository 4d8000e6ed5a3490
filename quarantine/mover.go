// Package quarantine relocates rejected duplicates into a holding folder
// where they stay recoverable.
package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"imagededup/logging"
)

// DirName is the quarantine folder created inside the scanned directory
const DirName = "delete"

// ErrMoveFailed wraps any failure to relocate a file
var ErrMoveFailed = errors.New("move failed")

// Mover moves files into Dir one at a time
type Mover struct {
	Dir      string
	mu       sync.Mutex
	reserved map[string]struct{}
}

// New returns a Mover targeting dir
func New(dir string) *Mover {
	return &Mover{Dir: dir}
}

// Ensure creates the quarantine folder if it does not exist
func (m *Mover) Ensure() error {
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return fmt.Errorf("cannot create quarantine folder %s: %w", m.Dir, err)
	}
	return nil
}

// destination returns the first free name for src inside the quarantine
// folder: the base name, then stem_1.ext, stem_2.ext and so on.
func (m *Mover) destination(src string) (string, error) {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	dest := filepath.Join(m.Dir, name)
	for n := 1; ; n++ {
		if _, taken := m.reserved[dest]; taken {
			dest = filepath.Join(m.Dir, stem+"_"+strconv.Itoa(n)+ext)
			continue
		}
		_, err := os.Lstat(dest)
		if errors.Is(err, os.ErrNotExist) {
			return dest, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMoveFailed, src, err)
		}
		dest = filepath.Join(m.Dir, stem+"_"+strconv.Itoa(n)+ext)
	}
}

// Reserve picks the destination Move would use and marks it taken without
// touching the filesystem. Dry runs use it to report distinct names.
func (m *Mover) Reserve(src string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dest, err := m.destination(src)
	if err != nil {
		return "", err
	}
	if m.reserved == nil {
		m.reserved = make(map[string]struct{})
	}
	m.reserved[dest] = struct{}{}
	return dest, nil
}

// Move renames src into the quarantine folder and returns its new path.
// Failures wrap ErrMoveFailed and leave src where it was.
func (m *Mover) Move(src string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dest, err := m.destination(src)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMoveFailed, src, err)
	}
	logging.DebugLog("moved %s to %s", src, dest)
	return dest, nil
}
