package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"imagededup/database"
	"imagededup/duplicates"
	"imagededup/imageprocessor"
	"imagededup/logging"
	"imagededup/quarantine"
	"imagededup/types"

	"golang.org/x/sync/errgroup"
)

// fileMover is the part of quarantine.Mover a run drives
type fileMover interface {
	Ensure() error
	Move(src string) (string, error)
	Reserve(src string) (string, error)
}

var newMover = func(dir string) fileMover { return quarantine.New(dir) }

// Run scans options.FolderPath, moves every non-kept duplicate into its
// delete folder and returns the run summary. db may be nil to disable the
// fingerprint cache. Per-file failures are logged and skipped; only an
// invalid directory, a quarantine folder that cannot be created, or
// cancellation end the run early.
func Run(ctx context.Context, db *sql.DB, options ScanOptions) (*Summary, error) {
	if err := ValidateDirectory(options.FolderPath); err != nil {
		return nil, err
	}
	out := options.Out
	if out == nil {
		out = io.Discard
	}

	quarantineDir := filepath.Join(options.FolderPath, quarantine.DirName)
	mover := newMover(quarantineDir)
	if err := mover.Ensure(); err != nil {
		return nil, err
	}

	printHeader(out, "Scanning for images...")
	paths, err := ListImages(options.FolderPath)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Found %d images\n\n", len(paths))
	logging.DebugLog("Found %d candidate images in %s", len(paths), options.FolderPath)

	summary := &Summary{ImagesFound: len(paths)}

	fmt.Fprintln(out, "Fingerprinting images...")
	records, fingerprintErrors, err := BuildRecords(ctx, db, paths, options.MaxWorkers, out)
	summary.FingerprintErrors = fingerprintErrors
	if err != nil {
		return summary, err
	}

	groups := duplicates.FindGroups(records)
	for _, g := range groups {
		if g.Method == types.MethodExact {
			summary.ExactGroups++
		} else {
			summary.PerceptualGroups++
		}
	}
	summary.Groups = len(groups)

	fmt.Fprintln(out)
	printHeader(out, "Processing duplicates...")

	err = processGroups(ctx, db, mover, groups, options.DryRun, out, summary)
	summary.Remaining = summary.ImagesFound - summary.Moved

	printSummary(out, summary, quarantineDir, options.DryRun)
	return summary, err
}

// BuildRecords fingerprints every path with up to workers files in flight.
// The returned slice is in the same order as paths. The int result counts
// files with at least one failed fingerprint.
func BuildRecords(ctx context.Context, db *sql.DB, paths []string, workers int, out io.Writer) ([]types.ImageRecord, int, error) {
	if workers < 1 {
		workers = 1
	}
	if out == nil {
		out = io.Discard
	}

	records := make([]types.ImageRecord, len(paths))
	resultsChan := make(chan ProcessImageResult, workers)
	tracker := NewProgressTracker(out, len(paths), resultsChan)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := buildRecord(db, path)
			records[i] = rec
			resultsChan <- ProcessImageResult{Path: path, Error: err}
			return nil
		})
	}
	err := g.Wait()
	close(resultsChan)
	tracker.Stop()

	if err == nil {
		err = ctx.Err()
	}
	_, errCount := tracker.Counts()
	return records, errCount, err
}

// buildRecord computes both fingerprints and the dimensions of one file,
// or takes them from the cache. The record is returned even when some
// steps failed; the error joins every failure.
func buildRecord(db *sql.DB, path string) (types.ImageRecord, error) {
	rec := types.ImageRecord{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return rec, fmt.Errorf("%w: %s: %v", imageprocessor.ErrUnreadable, path, err)
	}
	rec.Size = info.Size()
	rec.ModTime = info.ModTime()

	if db != nil {
		cached, ok, err := database.LookupFingerprint(db, path, rec.Size, rec.ModTime)
		if err != nil {
			logging.LogWarning("Fingerprint cache lookup failed for %s: %v", path, err)
		} else if ok {
			logging.DebugLog("Using cached fingerprint for %s", path)
			return cached, nil
		}
	}

	var errs []error

	if digest, err := imageprocessor.ExactDigest(path); err != nil {
		errs = append(errs, fmt.Errorf("exact digest: %w", err))
	} else {
		rec.Exact = &digest
	}

	if hash, err := imageprocessor.PerceptualDigest(path); err != nil {
		errs = append(errs, fmt.Errorf("perceptual digest: %w", err))
	} else {
		rec.Perceptual = &hash
	}

	if w, h, err := imageprocessor.Dimensions(path); err != nil {
		errs = append(errs, fmt.Errorf("resolution: %w", err))
	} else {
		rec.Width, rec.Height = w, h
	}

	if db != nil {
		if err := database.StoreFingerprint(db, rec); err != nil {
			logging.LogWarning("Fingerprint cache store failed for %s: %v", path, err)
		}
	}

	return rec, errors.Join(errs...)
}

// processGroups arbitrates each group in order and quarantines the losers
func processGroups(ctx context.Context, db *sql.DB, mover fileMover, groups []types.DuplicateGroup, dryRun bool, out io.Writer, summary *Summary) error {
	moved := make(map[string]string)
	var keepers []string
	kept := make(map[string]struct{})

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision := duplicates.SelectKeeper(group)
		summary.Decisions = append(summary.Decisions, decision)
		printGroup(out, decision)

		if _, seen := kept[decision.Keeper.Path]; !seen {
			kept[decision.Keeper.Path] = struct{}{}
			keepers = append(keepers, decision.Keeper.Path)
		}

		for _, loser := range decision.Losers {
			name := filepath.Base(loser.Path)
			if dest, ok := moved[loser.Path]; ok {
				fmt.Fprintf(out, "  → Already in delete: %s (%s)\n", name, filepath.Base(dest))
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var (
				dest string
				err  error
			)
			if dryRun {
				dest, err = mover.Reserve(loser.Path)
			} else {
				dest, err = mover.Move(loser.Path)
			}
			if err != nil {
				summary.MoveFailures++
				logging.LogError("Error moving %s: %v", loser.Path, err)
				fmt.Fprintf(out, "  ✗ Could not move: %s\n", name)
				continue
			}

			moved[loser.Path] = dest
			summary.Moved++
			summary.BytesMoved += loser.Size
			printMoved(out, name, filepath.Base(dest), dryRun)

			if db != nil && !dryRun {
				if err := database.RemoveFingerprint(db, loser.Path); err != nil {
					logging.LogWarning("%v", err)
				}
			}
		}
		fmt.Fprintln(out)
	}

	// A keeper of an earlier group can lose in a later, overlapping group.
	for _, path := range keepers {
		if _, gone := moved[path]; !gone {
			summary.Kept++
		}
	}
	return nil
}
