package scanner

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"imagededup/types"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var rule = strings.Repeat("=", 50)

func printHeader(out io.Writer, title string) {
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, rule)
}

func pixels(n int) string {
	return humanize.Comma(int64(n)) + " pixels"
}

func printGroup(out io.Writer, d types.KeepDecision) {
	fmt.Fprintf(out, "Found %d duplicate(s) [%s]:\n", len(d.Group.Members), d.Group.Method)
	for _, m := range d.Group.Members {
		fmt.Fprintf(out, "  - %s: %s\n", filepath.Base(m.Path), pixels(m.Resolution()))
	}
	fmt.Fprintf(out, "  ✓ Keeping: %s (%s)\n", filepath.Base(d.Keeper.Path), pixels(d.Keeper.Resolution()))
}

func printMoved(out io.Writer, name, destName string, dryRun bool) {
	verb := "Moved to delete"
	if dryRun {
		verb = "Would move to delete"
	}
	if destName != name {
		fmt.Fprintf(out, "  → %s: %s (as %s)\n", verb, name, destName)
		return
	}
	fmt.Fprintf(out, "  → %s: %s\n", verb, name)
}

func printSummary(out io.Writer, s *Summary, quarantineDir string, dryRun bool) {
	fmt.Fprintln(out, rule)
	if dryRun {
		fmt.Fprintln(out, "DRY RUN COMPLETE (nothing was moved)")
	} else {
		fmt.Fprintln(out, "COMPLETE!")
	}
	fmt.Fprintln(out, rule)

	movedLabel := "Images moved to 'delete' folder"
	if dryRun {
		movedLabel = "Images that would be moved"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendRows([]table.Row{
		{"Images found", s.ImagesFound},
		{"Total duplicate groups found", s.Groups},
		{"  exact", s.ExactGroups},
		{"  perceptual", s.PerceptualGroups},
		{"Images kept", s.Kept},
		{movedLabel, s.Moved},
		{"Unique images remaining", s.Remaining},
		{"Space in quarantine", humanize.Bytes(uint64(s.BytesMoved))},
	})
	if s.FingerprintErrors > 0 {
		tw.AppendRow(table.Row{"Files with errors", s.FingerprintErrors})
	}
	if s.MoveFailures > 0 {
		tw.AppendRow(table.Row{"Failed moves", s.MoveFailures})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	fmt.Fprintln(out, tw.Render())
	fmt.Fprintln(out)

	if s.Moved > 0 && !dryRun {
		fmt.Fprintf(out, "Review files in '%s' before permanently deleting.\n", quarantineDir)
	}
}
