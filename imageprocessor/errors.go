package imageprocessor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadable means the file could not be opened or streamed
	ErrUnreadable = errors.New("unreadable")
	// ErrUndecodable means the file was read but no loader could decode it
	ErrUndecodable = errors.New("undecodable")
)

func unreadable(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
}

func undecodable(path string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUndecodable, path)
	}
	return fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
}
