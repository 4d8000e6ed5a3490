package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"imagededup/database"
	"imagededup/logging"
	"imagededup/scanner"
	"imagededup/signalhandler"
	"imagededup/utils"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := utils.ParseArguments(argv)
	if errors.Is(err, utils.ErrHelp) {
		utils.PrintUsage(os.Stdout)
		return 0
	}
	if err != nil {
		utils.PrintUsage(os.Stderr)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if args.ShowVersion {
		fmt.Println(version)
		return 0
	}

	if err := logging.SetupLogger(args.LogFile, args.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
	}
	defer logging.CloseLogger()

	if err := scanner.ValidateDirectory(args.Directory); err != nil {
		fmt.Printf("Error: '%s' is not a valid directory\n", args.Directory)
		logging.DebugLog("%v", err)
		return 1
	}

	var db *sql.DB
	if args.CachePath != "" {
		db, err = database.InitDatabase(args.CachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening fingerprint cache %s: %v\n", args.CachePath, err)
			return 1
		}
		defer db.Close()
	}

	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	logging.LogInfo("Scanning %s (workers=%d, dry-run=%v, cache=%q)", args.Directory, args.Workers, args.DryRun, args.CachePath)
	startTime := time.Now()
	_, err = scanner.Run(ctx, db, scanner.ScanOptions{
		FolderPath: args.Directory,
		DryRun:     args.DryRun,
		MaxWorkers: args.Workers,
		Out:        os.Stdout,
	})
	logging.DebugLog("Run finished in %v", time.Since(startTime))

	if db != nil {
		if stats, statsErr := database.GetCacheStats(db); statsErr == nil {
			logging.DebugLog("Fingerprint cache: %d entries, %d distinct exact digests, %d distinct perceptual hashes",
				stats.Entries, stats.UniqueExact, stats.UniqueHashes)
		}
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted.")
		return 130
	case errors.Is(err, scanner.ErrInvalidDirectory):
		fmt.Printf("Error: '%s' is not a valid directory\n", args.Directory)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}
