package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/src/core/docqa"
	"docqa/src/tui"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [document]",
	Short: "Chat with a document in the terminal",
	Long: `Start a terminal chat session. When a document is given it is indexed first;
otherwise use /upload <path> inside the chat.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		view, err := d.service.CreateSession(ctx)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			doc, err := d.source.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			if view, err = d.service.Upload(ctx, view.ID, doc); err != nil {
				return fmt.Errorf("%s: %w", view.Status, err)
			}
		}

		p := tea.NewProgram(tui.New(ctx, d.service, d.source, view), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

var _ tui.ChatService = (*docqa.Service)(nil)
