package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"medikacom/kgrag/internal/search"
)

var (
	searchTopK     int
	searchJSON     bool
	searchFile     string
	searchParallel int
)

var searchCmd = &cobra.Command{
	Use:   "search [question...]",
	Short: "Retrieve context blocks for a question",
	Long: `Embeds the question, finds the nearest chunks and expands hits from
sequential categories into their whole chain. With --file every non-blank line
of the file is a question and the questions run concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var queries []string
		switch {
		case searchFile != "" && len(args) > 0:
			return errors.New("give either a question or --file, not both")
		case searchFile != "":
			var err error
			if searchFile == "-" {
				queries, err = parseQueries(cmd.InOrStdin())
			} else {
				queries, err = readQueries(searchFile)
			}
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return fmt.Errorf("no questions in %s", searchFile)
			}
		case len(args) > 0:
			queries = []string{strings.Join(args, " ")}
		default:
			return errors.New("a question or --file is required")
		}

		a, err := openApp(ctx, appOptions{embedder: true})
		if err != nil {
			return err
		}
		defer a.Close()

		topK := searchTopK
		if topK <= 0 {
			topK = a.cfg.Search.TopK
		}
		engine := a.engine()

		results := make([]queryResult, len(queries))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, searchParallel))
		for i, q := range queries {
			g.Go(func() error {
				blocks, err := engine.Search(gctx, q, topK)
				if err != nil {
					return fmt.Errorf("searching %q: %w", q, err)
				}
				results[i] = queryResult{Query: q, Blocks: blocks}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if searchJSON {
			if searchFile == "" {
				return writeJSON(cmd.OutOrStdout(), results[0].Blocks)
			}
			return writeJSON(cmd.OutOrStdout(), results)
		}

		p := newPrinter(cmd)
		for _, r := range results {
			if len(results) > 1 {
				p.printf("%s %s\n", p.heading("Q:"), r.Query)
			}
			printBlocks(p, r.Blocks)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "Nearest chunks to fetch (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "File with one question per line (- for stdin)")
	searchCmd.Flags().IntVar(&searchParallel, "parallel", 4, "Questions searched concurrently with --file")
	rootCmd.AddCommand(searchCmd)
}

type queryResult struct {
	Query  string                `json:"query"`
	Blocks []search.ContextBlock `json:"blocks"`
}

// readQueries returns the non-blank lines of path, skipping # comments.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseQueries(f)
}

func parseQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, sc.Err()
}

func printBlocks(p *printer, blocks []search.ContextBlock) {
	if len(blocks) == 0 {
		p.println("No results found.")
		p.println()
		return
	}
	for i, b := range blocks {
		p.printf("  [%d] %s (%.3f) %s\n", i+1, p.heading(b.Category), b.Score, p.muted(string(b.SourceType)))
		p.printf("      %s\n", truncTitle(b.Text, 400))
		p.println()
	}
}
