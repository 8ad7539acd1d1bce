package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/ingest"
)

var (
	ingestWatch bool
	ingestJSON  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Load a school knowledge document into the graph",
	Long: `Upserts the school and its section nodes and rebuilds every chunk chain the
document describes. Re-running with the same document converges to the same
graph. With --watch the file is ingested again whenever it changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		a, err := openApp(ctx, appOptions{embedder: true})
		if err != nil {
			return err
		}
		defer a.Close()

		idx := a.vectorIndex()
		if err := a.store.EnsureVectorIndex(ctx, idx); err != nil {
			return fmt.Errorf("provisioning %s: %w", idx.Name, err)
		}
		ch, err := newChunker(a.cfg, a.log)
		if err != nil {
			return err
		}
		in := ingest.New(a.writer(), ch, a.log)
		p := newPrinter(cmd)

		run := func(ctx context.Context) error {
			report, err := in.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			if ingestJSON {
				return writeJSON(p.w, report)
			}
			printIngestReport(p, report)
			return nil
		}

		if err := run(ctx); err != nil {
			if !ingestWatch {
				return err
			}
			a.log.Error("initial ingestion failed", "file", path, "error", err)
		}
		if !ingestWatch {
			return nil
		}
		p.printf("%s\n", p.muted(fmt.Sprintf("watching %s for changes (ctrl+c to stop)", path)))
		return ingest.Watch(ctx, path, a.log, run)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Re-ingest whenever the file changes")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the ingestion report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func printIngestReport(p *printer, r ingest.Report) {
	totals := r.Totals()
	p.printf("\n  %s  %s\n", p.heading(r.School), p.muted(truncID(r.SchoolID)))
	p.rule()
	for _, c := range r.Chains {
		status := p.good("ok")
		if c.Skipped > 0 {
			status = p.bad(fmt.Sprintf("%d skipped", c.Skipped))
		}
		p.printf("  %-20s %-44s %3d written  %3d purged  %s\n",
			truncTitle(c.Section, 20), truncTitle(c.Category, 44), c.Written, c.Deleted, status)
	}
	if len(r.SkippedKeys) > 0 {
		p.printf("\n  %s\n", p.muted(fmt.Sprintf("informasi_tambahan keys skipped (no usable name or duplicate anchor): %s", strings.Join(r.SkippedKeys, ", "))))
	}
	p.printf("\n  %d sections, %d chains: %d chunks written, %d purged, %d skipped in %s\n\n",
		len(r.Sections), len(r.Chains), totals.Written, totals.Deleted, totals.Skipped, r.Duration.Round(time.Millisecond))
}
