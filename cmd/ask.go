package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	askShowContext bool
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Answer a question from the school knowledge graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, appOptions{embedder: true})
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.pipeline().Ask(ctx, strings.Join(args, " "))

		if askJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		p := newPrinter(cmd)
		p.println(res.Answer)
		if res.RetrievalErr != nil {
			p.printf("\n%s\n", p.bad("retrieval failed: "+res.RetrievalErr.Error()))
		}
		if askShowContext {
			p.printf("\n%s\n", p.heading("Context"))
			printBlocks(p, res.Blocks)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "Also print the retrieved context blocks")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output answer and context as JSON")
	rootCmd.AddCommand(askCmd)
}
