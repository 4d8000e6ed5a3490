package scanner

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"imagededup/database"
	"imagededup/logging"
	"imagededup/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Run", func() {
	var (
		dir     string
		out     bytes.Buffer
		options ScanOptions
		summary *Summary
		runErr  error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out.Reset()
		options = ScanOptions{FolderPath: dir, MaxWorkers: 2, Out: &out}
	})

	deleted := func(name string) string {
		return filepath.Join(dir, "delete", name)
	}
	local := func(name string) string {
		return filepath.Join(dir, name)
	}

	When("two files are byte-identical", func() {
		BeforeEach(func() {
			writeJPEG(local("a.jpg"), patternImage(800, 600, 0))
			copyFile(local("a.jpg"), local("b.jpg"))
		})

		JustBeforeEach(func() {
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("keeps the first file and moves the second", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.Groups).To(Equal(1))
			Expect(summary.ExactGroups).To(Equal(1))
			Expect(summary.PerceptualGroups).To(BeZero())
			Expect(summary.Decisions[0].Keeper.Path).To(Equal(local("a.jpg")))

			Expect(local("a.jpg")).To(BeAnExistingFile())
			Expect(local("b.jpg")).NotTo(BeAnExistingFile())
			Expect(deleted("b.jpg")).To(BeAnExistingFile())

			Expect(summary.ImagesFound).To(Equal(2))
			Expect(summary.Kept).To(Equal(1))
			Expect(summary.Moved).To(Equal(1))
			Expect(summary.Remaining).To(Equal(1))
		})

		It("reports the group", func() {
			Expect(out.String()).To(ContainSubstring("Found 2 images"))
			Expect(out.String()).To(ContainSubstring("Found 2 duplicate(s) [exact]"))
			Expect(out.String()).To(ContainSubstring("  - a.jpg: 480,000 pixels"))
			Expect(out.String()).To(ContainSubstring("Keeping: a.jpg"))
			Expect(out.String()).To(ContainSubstring("Moved to delete: b.jpg"))
		})

		Context("in dry-run mode", func() {
			BeforeEach(func() {
				options.DryRun = true
			})

			It("reports the move without touching the files", func() {
				Expect(runErr).NotTo(HaveOccurred())
				Expect(summary.Moved).To(Equal(1))
				Expect(local("b.jpg")).To(BeAnExistingFile())
				Expect(deleted("b.jpg")).NotTo(BeAnExistingFile())
				Expect(out.String()).To(ContainSubstring("Would move to delete: b.jpg"))
			})
		})
	})

	When("two files are perceptually identical at different sizes", func() {
		BeforeEach(func() {
			writePNG(local("big.png"), patternImage(1920, 1080, 2))
			writePNG(local("small.png"), patternImage(640, 360, 2))
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("keeps the larger one", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.Groups).To(Equal(1))
			Expect(summary.PerceptualGroups).To(Equal(1))
			Expect(summary.Decisions[0].Keeper.Path).To(Equal(local("big.png")))
			Expect(local("big.png")).To(BeAnExistingFile())
			Expect(deleted("small.png")).To(BeAnExistingFile())
		})
	})

	When("the quarantine already holds a file with the loser's name", func() {
		BeforeEach(func() {
			Expect(os.Mkdir(filepath.Join(dir, "delete"), 0755)).To(Succeed())
			Expect(os.WriteFile(deleted("dup.png"), []byte("older"), 0644)).To(Succeed())
			writePNG(local("best.png"), patternImage(400, 400, 3))
			writePNG(local("dup.png"), patternImage(200, 200, 3))
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("moves the loser under a suffixed name", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(deleted("dup_1.png")).To(BeAnExistingFile())
			data, err := os.ReadFile(deleted("dup.png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("older"))
			Expect(out.String()).To(ContainSubstring("Moved to delete: dup.png (as dup_1.png)"))
		})
	})

	When("a file is corrupt", func() {
		var logs bytes.Buffer

		BeforeEach(func() {
			logs.Reset()
			logging.SetOutput(&logs, slog.LevelError)
			DeferCleanup(logging.CloseLogger)

			Expect(os.WriteFile(local("corrupt.png"), []byte("not an image"), 0644)).To(Succeed())
			writePNG(local("fine.png"), patternImage(100, 100, 4))
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("counts it, logs it and leaves it out of every group", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.ImagesFound).To(Equal(2))
			Expect(summary.Groups).To(BeZero())
			Expect(summary.FingerprintErrors).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("corrupt.png"))
			Expect(local("corrupt.png")).To(BeAnExistingFile())
		})
	})

	When("moving a loser fails", func() {
		BeforeEach(func() {
			writePNG(local("a.png"), patternImage(100, 100, 0))
			copyFile(local("a.png"), local("b.png"))
			writePNG(local("c.png"), patternImage(200, 200, 1))
			writePNG(local("d.png"), patternImage(100, 100, 1))

			restore := newMover
			DeferCleanup(func() { newMover = restore })
			newMover = func(dir string) fileMover {
				return vanishingMover{fileMover: restore(dir), name: "b.png"}
			}
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("reports the failure and still processes later groups", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.Groups).To(Equal(2))
			Expect(summary.MoveFailures).To(Equal(1))
			Expect(summary.Moved).To(Equal(1))
			Expect(deleted("b.png")).NotTo(BeAnExistingFile())
			Expect(deleted("d.png")).To(BeAnExistingFile())
			Expect(local("c.png")).To(BeAnExistingFile())
			Expect(out.String()).To(ContainSubstring("Could not move: b.png"))
			Expect(out.String()).To(ContainSubstring("Moved to delete: d.png"))
		})
	})

	When("the quarantine folder cannot be created", func() {
		BeforeEach(func() {
			writePNG(local("a.png"), patternImage(60, 60, 0))
			copyFile(local("a.png"), local("b.png"))
			Expect(os.WriteFile(local("delete"), []byte("in the way"), 0644)).To(Succeed())
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("fails before listing or moving anything", func() {
			Expect(runErr).To(HaveOccurred())
			Expect(summary).To(BeNil())
			Expect(out.String()).To(BeEmpty())
			Expect(local("a.png")).To(BeAnExistingFile())
			Expect(local("b.png")).To(BeAnExistingFile())
		})
	})

	When("no image is duplicated", func() {
		BeforeEach(func() {
			writePNG(local("one.png"), patternImage(100, 100, 0))
			writePNG(local("two.png"), patternImage(100, 100, 1))
			writeJPEG(local("three.jpg"), patternImage(120, 90, 5))
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("moves nothing", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.Groups).To(BeZero())
			Expect(summary.Moved).To(BeZero())
			Expect(summary.Remaining).To(Equal(3))
			entries, err := os.ReadDir(filepath.Join(dir, "delete"))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	When("a perceptual group is a superset of an exact group", func() {
		BeforeEach(func() {
			writePNG(local("a.png"), patternImage(100, 100, 6))
			copyFile(local("a.png"), local("b.png"))
			writePNG(local("c.png"), patternImage(200, 200, 6))
			summary, runErr = Run(context.Background(), nil, options)
		})

		It("processes both groups without moving a file twice", func() {
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.ExactGroups).To(Equal(1))
			Expect(summary.PerceptualGroups).To(Equal(1))
			Expect(summary.Decisions[1].Keeper.Path).To(Equal(local("c.png")))
			Expect(summary.Moved).To(Equal(2))
			Expect(summary.MoveFailures).To(BeZero())
			Expect(summary.Kept).To(Equal(1))
			Expect(local("c.png")).To(BeAnExistingFile())
			Expect(out.String()).To(ContainSubstring("Already in delete: b.png"))
		})

		It("never moves a group's keeper while processing that group", func() {
			for _, d := range summary.Decisions {
				for _, l := range d.Losers {
					Expect(l.Path).NotTo(Equal(d.Keeper.Path))
				}
			}
		})
	})

	When("the context is already cancelled", func() {
		BeforeEach(func() {
			writePNG(local("a.png"), patternImage(50, 50, 0))
			copyFile(local("a.png"), local("b.png"))
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			summary, runErr = Run(ctx, nil, options)
		})

		It("stops before moving anything", func() {
			Expect(errors.Is(runErr, context.Canceled)).To(BeTrue())
			Expect(local("b.png")).To(BeAnExistingFile())
		})
	})

	When("the directory is invalid", func() {
		It("returns ErrInvalidDirectory", func() {
			options.FolderPath = filepath.Join(dir, "missing")
			_, err := Run(context.Background(), nil, options)
			Expect(errors.Is(err, ErrInvalidDirectory)).To(BeTrue())
		})
	})

	When("a fingerprint cache is configured", func() {
		var db *sql.DB

		BeforeEach(func() {
			var err error
			db, err = database.InitDatabase(filepath.Join(GinkgoT().TempDir(), "cache.db"))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(db.Close)

			writePNG(local("big.png"), patternImage(300, 300, 1))
			writePNG(local("small.png"), patternImage(150, 150, 1))
		})

		It("stores fingerprints and forgets moved files", func() {
			summary, runErr = Run(context.Background(), db, options)
			Expect(runErr).NotTo(HaveOccurred())
			Expect(summary.Moved).To(Equal(1))

			info, err := os.Stat(local("big.png"))
			Expect(err).NotTo(HaveOccurred())
			rec, ok, err := database.LookupFingerprint(db, local("big.png"), info.Size(), info.ModTime())
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(rec.Resolution()).To(Equal(300 * 300))

			stats, err := database.GetCacheStats(db)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Entries).To(Equal(1))
		})

		It("reuses cached fingerprints on the next run", func() {
			options.DryRun = true
			first, err := Run(context.Background(), db, options)
			Expect(err).NotTo(HaveOccurred())

			// A forged cache entry proves the second run read it back.
			info, err := os.Stat(local("small.png"))
			Expect(err).NotTo(HaveOccurred())
			exact := types.ExactDigest{0xAA}
			hash := types.PerceptualHash(0x1234)
			Expect(database.StoreFingerprint(db, types.ImageRecord{
				Path: local("small.png"), Size: info.Size(), ModTime: info.ModTime(),
				Exact: &exact, Perceptual: &hash, Width: 1, Height: 1,
			})).To(Succeed())

			second, err := Run(context.Background(), db, options)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Groups).To(Equal(1))
			Expect(second.Groups).To(BeZero())
		})
	})
})

// vanishingMover removes one file just before moving it, so the rename fails
type vanishingMover struct {
	fileMover
	name string
}

func (m vanishingMover) Move(src string) (string, error) {
	if filepath.Base(src) == m.name {
		Expect(os.Remove(src)).To(Succeed())
	}
	return m.fileMover.Move(src)
}

var _ = Describe("BuildRecords", func() {
	It("returns records in input order", func() {
		dir := GinkgoT().TempDir()
		var paths []string
		for i, name := range []string{"c.png", "a.png", "b.png"} {
			p := filepath.Join(dir, name)
			writePNG(p, patternImage(40+i*10, 40, i))
			paths = append(paths, p)
		}

		records, errCount, err := BuildRecords(context.Background(), nil, paths, 3, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(errCount).To(BeZero())
		Expect(records).To(HaveLen(3))
		for i, rec := range records {
			Expect(rec.Path).To(Equal(paths[i]))
			Expect(rec.Exact).NotTo(BeNil())
			Expect(rec.Perceptual).NotTo(BeNil())
			Expect(rec.Width).To(Equal(40 + i*10))
		}
	})
})
