package utils

import (
	"errors"
	"fmt"
	"io"

	"imagededup/signalhandler"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "IMAGEDEDUP"

// Arguments holds the parsed command line
type Arguments struct {
	Directory   string
	Debug       bool
	LogFile     string
	CachePath   string
	Workers     int
	DryRun      bool
	ShowVersion bool
}

// ErrHelp is returned when the user asked for usage
var ErrHelp = ff.ErrHelp

func newFlagSet(a *Arguments) *ff.FlagSet {
	fs := ff.NewFlagSet("imagededup")
	fs.BoolVar(&a.Debug, 0, "debug", "log debug details to stderr")
	fs.StringVar(&a.LogFile, 0, "logfile", "", "also write the log to this file")
	fs.StringVar(&a.CachePath, 0, "cache", "", "sqlite fingerprint cache path (disabled when empty)")
	fs.IntVar(&a.Workers, 0, "workers", signalhandler.GetOptimalProcs(), "parallel fingerprint workers")
	fs.BoolVar(&a.DryRun, 0, "dry-run", "report duplicates without moving anything")
	fs.BoolVar(&a.ShowVersion, 0, "version", "print version and exit")
	return fs
}

// ParseArguments parses args (without the program name). Flags may also be
// set through IMAGEDEDUP_* environment variables. The single optional
// positional argument is the directory to scan, "." by default.
func ParseArguments(args []string) (Arguments, error) {
	var a Arguments
	fs := newFlagSet(&a)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return a, err
	}

	rest := fs.GetArgs()
	switch len(rest) {
	case 0:
		a.Directory = "."
	case 1:
		a.Directory = rest[0]
	default:
		return a, fmt.Errorf("expected at most one directory, got %d arguments", len(rest))
	}

	if a.Workers < 1 {
		return a, errors.New("--workers must be at least 1")
	}
	return a, nil
}

// PrintUsage writes the usage text and flag help to w
func PrintUsage(w io.Writer) {
	var a Arguments
	fmt.Fprintf(w, "Usage:\n  imagededup [flags] [directory]\n\n")
	fmt.Fprintf(w, "Finds duplicate PNG/JPEG images directly inside directory (default: current\n")
	fmt.Fprintf(w, "directory), keeps the highest resolution copy of each set and moves the rest\n")
	fmt.Fprintf(w, "into directory/delete for review.\n\n")
	fmt.Fprintf(w, "%s\n", ffhelp.Flags(newFlagSet(&a)))
}
