package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/graph"
)

var (
	chainLabel string
	chainRel   string
	chainKeyBy string
	chainJSON  bool
)

var chainCmd = &cobra.Command{
	Use:   "chain <parent-key>",
	Short: "Print the chunk chain hanging off a conceptual node",
	Long: `Looks a conceptual node up by its key (nama for Sekolah, nama_kategori for
every other label) and prints the chunks reachable from it via the anchor
relationship, in chain order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		label := graph.Label(chainLabel)
		if err := label.Validate(); err != nil {
			return err
		}
		anchor := graph.RelType(chainRel)
		if !anchor.IsAnchor() {
			return fmt.Errorf("%s is not a chunk anchor", chainRel)
		}
		keyProperty := chainKeyBy
		if keyProperty == "" {
			keyProperty = defaultKeyProperty(label)
		}

		a, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		parent, err := a.store.FindNode(ctx, label, keyProperty, args[0])
		if err != nil {
			return fmt.Errorf("finding %s %q: %w", label, args[0], err)
		}
		chunks, err := a.store.Chain(ctx, parent.ID, anchor)
		if err != nil {
			return fmt.Errorf("reading chain: %w", err)
		}

		if chainJSON {
			return writeJSON(cmd.OutOrStdout(), struct {
				Parent *graph.Node   `json:"parent"`
				Anchor graph.RelType `json:"anchor"`
				Chunks []graph.Chunk `json:"chunks"`
				Count  int           `json:"count"`
			}{parent, anchor, chunks, len(chunks)})
		}

		printChain(newPrinter(cmd), parent, anchor, chunks)
		return nil
	},
}

func init() {
	chainCmd.Flags().StringVar(&chainLabel, "label", string(graph.LabelSekolah), "Label of the parent node")
	chainCmd.Flags().StringVar(&chainRel, "rel", string(graph.RelHasDescriptionChunk), "Anchor relationship to the chain head")
	chainCmd.Flags().StringVar(&chainKeyBy, "key-property", "", "Key property of the parent (default nama for Sekolah, else nama_kategori)")
	chainCmd.Flags().BoolVar(&chainJSON, "json", false, "JSON output")
	rootCmd.AddCommand(chainCmd)
}

func defaultKeyProperty(label graph.Label) string {
	if label == graph.LabelSekolah {
		return "nama"
	}
	return "nama_kategori"
}

func printChain(p *printer, parent *graph.Node, anchor graph.RelType, chunks []graph.Chunk) {
	if len(chunks) == 0 {
		p.printf("No %s chain under %s %q\n", anchor, parent.Label, parent.KeyValue)
		return
	}

	p.printf("%s %s (%s)  -[%s]->\n\n",
		p.heading(string(parent.Label)), parent.KeyValue, truncID(parent.ID), anchor)
	for _, c := range chunks {
		p.printf("  %2d. %s  %s\n", c.Sequence, p.muted(truncID(c.ID)), p.muted(c.Category))
		p.printf("      %s\n", truncTitle(c.Text, 160))
	}
	p.printf("\n%d chunk(s)\n", len(chunks))
}
