package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/graph"
)

var (
	analyzeJSON      bool
	analyzeStaleDays int64
	analyzeTopN      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check chunk chains for gaps, branches, orphans and staleness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.store.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("loading graph: %w", err)
		}

		config := graph.DefaultConfig()
		config.StaleDays = int64(a.cfg.Analyze.StaleDays)
		if analyzeStaleDays > 0 {
			config.StaleDays = analyzeStaleDays
		}

		report := graph.AnalyzeChains(snap, config)

		if analyzeJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}

		printIntegrityReport(newPrinter(cmd), report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().Int64Var(&analyzeStaleDays, "stale-days", 0, "Days a parent may be updated after its chain before the chain is stale (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of items to show per section")
	rootCmd.AddCommand(analyzeCmd)
}

func printIntegrityReport(p *printer, report *graph.IntegrityReport, snap *graph.Snapshot) {
	p.printf("\n  Chain Health: %.0f%%  [%s]\n", report.HealthScore*100, healthBar(report.HealthScore))
	p.printf("  %s\n\n", p.muted(fmt.Sprintf("breakdown: reachability=%.2f integrity=%.2f freshness=%.2f",
		report.HealthBreakdown.Reachability,
		report.HealthBreakdown.Integrity,
		report.HealthBreakdown.Freshness)))

	p.println("  " + p.heading("CHAINS"))
	p.rule()
	p.printf("  Concept nodes: %d  Chunks: %d  Chains: %d\n", report.ConceptCount, report.ChunkCount, report.ChainCount)
	p.printf("  Broken: %d  Stale: %d\n", report.BrokenCount, report.StaleCount)

	if report.BrokenCount > 0 {
		p.printf("\n  %s\n", p.bad(fmt.Sprintf("%d broken chains:", report.BrokenCount)))
		shown := 0
		for _, c := range report.Chains {
			if c.Healthy() {
				continue
			}
			if shown == analyzeTopN {
				p.printf("    ... and %d more\n", report.BrokenCount-shown)
				break
			}
			shown++
			p.printf("    %s %s -[%s]-> %s  len=%d\n",
				truncID(c.HeadID), truncTitle(c.ParentKey, 30), c.Anchor, c.Category, c.Length)
			for _, prob := range c.Problems {
				p.printf("      - %s at %s: %s\n", prob.Kind, truncID(prob.ChunkID), prob.Detail)
			}
		}
	} else if report.ChainCount > 0 {
		p.printf("\n  %s\n", p.good("every chain walks cleanly"))
	}

	if report.StaleCount > 0 {
		p.println("\n  " + p.heading("STALENESS"))
		p.rule()
		p.printf("  %d stale chains (parent updated after its chunks were written):\n", report.StaleCount)
		shown := 0
		for _, c := range report.Chains {
			if !c.Stale {
				continue
			}
			if shown == analyzeTopN {
				p.printf("    ... and %d more\n", report.StaleCount-shown)
				break
			}
			shown++
			p.printf("    %s (%s) %dd drift\n", truncTitle(c.ParentKey, 30), c.Category, c.DriftDays)
		}
	}

	if report.OrphanCount > 0 {
		p.println("\n  " + p.heading("ORPHANS"))
		p.rule()
		p.printf("  %d chunks unreachable from any anchor, in %d fragments:\n", report.OrphanCount, report.FragmentCount)
		for i, id := range report.OrphanIDs {
			if i == analyzeTopN {
				p.printf("    ... and %d more\n", report.OrphanCount-i)
				break
			}
			category := "?"
			if n := snap.Nodes[id]; n != nil {
				category = n.Category
			}
			p.printf("    - %s (%s)\n", truncID(id), category)
		}
	}

	p.println()
}
