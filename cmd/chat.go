package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/chat"
)

var chatLogFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// The TUI owns the terminal, so logs go to a file or nowhere.
		var logOut io.Writer = io.Discard
		if chatLogFile != "" {
			f, err := os.OpenFile(chatLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}

		a, err := openApp(ctx, appOptions{embedder: true, logOutput: logOut})
		if err != nil {
			return err
		}
		defer a.Close()

		return chat.Run(ctx, a.pipeline())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatLogFile, "log-file", "", "Append logs to this file while chatting")
	rootCmd.AddCommand(chatCmd)
}
