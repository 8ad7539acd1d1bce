package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create the chunk vector index if it does not exist",
	Long: `Provisions the vector index over chunk embeddings. Running it again with the
same configuration is a no-op; an existing index with different dimensions or
similarity is reported as a mismatch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, appOptions{embedder: true})
		if err != nil {
			return err
		}
		defer a.Close()

		idx := a.vectorIndex()
		if err := a.store.EnsureVectorIndex(ctx, idx); err != nil {
			return fmt.Errorf("provisioning %s: %w", idx.Name, err)
		}
		p := newPrinter(cmd)
		p.printf("%s %s on :%s(%s), %d dimensions, %s\n",
			p.good("ready"), idx.Name, idx.Label, idx.Property, idx.Dimensions, idx.Similarity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
