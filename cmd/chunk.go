package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/chunker"
	"medikacom/kgrag/internal/tokenizer"
)

var (
	chunkPrefix    string
	chunkMaxTokens int
	chunkOverlap   int
	chunkJSON      bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file|->",
	Short: "Show how a text would be split into chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if chunkMaxTokens > 0 {
			cfg.Chunking.MaxTokens = chunkMaxTokens
		}
		if cmd.Flags().Changed("overlap") {
			cfg.Chunking.Overlap = chunkOverlap
		}
		if cfg.Chunking.Overlap >= cfg.Chunking.MaxTokens {
			return fmt.Errorf("overlap %d must be smaller than max tokens %d", cfg.Chunking.Overlap, cfg.Chunking.MaxTokens)
		}

		var data []byte
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		tok, err := tokenizer.NewTiktoken(cfg.Chunking.Encoding)
		if err != nil {
			return err
		}
		ch := chunker.New(tok,
			chunker.WithMaxTokens(cfg.Chunking.MaxTokens),
			chunker.WithOverlap(cfg.Chunking.Overlap),
			chunker.WithLogger(newLogger(cmd.ErrOrStderr())),
		)
		chunks := ch.Chunk(string(data), chunkPrefix)

		if chunkJSON {
			return writeJSON(cmd.OutOrStdout(), chunks)
		}
		p := newPrinter(cmd)
		for i, c := range chunks {
			p.printf("%s %s\n", p.heading(fmt.Sprintf("[%d]", i+1)), p.muted(fmt.Sprintf("%d tokens", len(tok.Encode(c)))))
			p.println(c)
			p.println()
		}
		p.printf("%d chunk(s), max %d tokens, overlap %d\n", len(chunks), ch.MaxTokens(), ch.Overlap())
		return nil
	},
}

func init() {
	chunkCmd.Flags().StringVar(&chunkPrefix, "prefix", "", "Prefix joined before the text as \"prefix: text\"")
	chunkCmd.Flags().IntVar(&chunkMaxTokens, "max-tokens", 0, "Window size in tokens (default from config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "Tokens shared by consecutive windows (default from config)")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "Output chunks as a JSON array")
	rootCmd.AddCommand(chunkCmd)
}
