package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"imagededup/logging"
	"imagededup/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the fingerprint cache at dbPath, creating the schema
// if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// Workers share one connection; sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		exact_digest TEXT NOT NULL,
		perceptual_hash TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exact_digest ON fingerprints(exact_digest);
	CREATE INDEX IF NOT EXISTS idx_perceptual_hash ON fingerprints(perceptual_hash);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create fingerprint table: %w", err)
	}

	logging.DebugLog("Opened fingerprint cache %s", dbPath)
	return db, nil
}

// LookupFingerprint returns the cached record for path when its size and
// modification time still match the file on disk
func LookupFingerprint(db *sql.DB, path string, size int64, modTime time.Time) (types.ImageRecord, bool, error) {
	var (
		storedSize    int64
		storedModTime int64
		exactHex      string
		perceptualHex string
		width, height int
	)
	err := db.QueryRow(`
		SELECT size, modified_at, exact_digest, perceptual_hash, width, height
		FROM fingerprints WHERE path = ?`, path).
		Scan(&storedSize, &storedModTime, &exactHex, &perceptualHex, &width, &height)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ImageRecord{}, false, nil
	}
	if err != nil {
		return types.ImageRecord{}, false, fmt.Errorf("database error for %s: %w", path, err)
	}

	if storedSize != size || storedModTime != modTime.UnixNano() {
		logging.DebugLog("Cached fingerprint for %s is stale", path)
		return types.ImageRecord{}, false, nil
	}

	exact, err := types.ParseExactDigest(exactHex)
	if err != nil {
		return types.ImageRecord{}, false, err
	}
	perceptual, err := types.ParsePerceptualHash(perceptualHex)
	if err != nil {
		return types.ImageRecord{}, false, err
	}

	return types.ImageRecord{
		Path:       path,
		Size:       size,
		ModTime:    modTime,
		Exact:      &exact,
		Perceptual: &perceptual,
		Width:      width,
		Height:     height,
	}, true, nil
}

// StoreFingerprint upserts a fully fingerprinted record. Records missing
// either digest are skipped so the file is retried on the next run.
func StoreFingerprint(db *sql.DB, rec types.ImageRecord) error {
	if rec.Exact == nil || rec.Perceptual == nil {
		return nil
	}

	_, err := db.Exec(`
		INSERT OR REPLACE INTO fingerprints (
			path, size, modified_at, exact_digest, perceptual_hash, width, height, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Path,
		rec.Size,
		rec.ModTime.UnixNano(),
		rec.Exact.String(),
		rec.Perceptual.String(),
		rec.Width,
		rec.Height,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot store fingerprint for %s: %w", rec.Path, err)
	}
	return nil
}

// RemoveFingerprint drops the entry for a file that no longer lives at path
func RemoveFingerprint(db *sql.DB, path string) error {
	if _, err := db.Exec(`DELETE FROM fingerprints WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cannot remove fingerprint for %s: %w", path, err)
	}
	return nil
}

// CacheStats summarizes the cache contents
type CacheStats struct {
	Entries      int
	UniqueExact  int
	UniqueHashes int
}

// GetCacheStats counts cached entries and distinct digests
func GetCacheStats(db *sql.DB) (*CacheStats, error) {
	var stats CacheStats
	err := db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT exact_digest), COUNT(DISTINCT perceptual_hash)
		FROM fingerprints`).Scan(&stats.Entries, &stats.UniqueExact, &stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return &stats, nil
}
