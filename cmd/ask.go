package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/decoder"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <document> [question...]",
	Short: "Index a document and answer questions about it",
	Long: `Index a local file or minio://bucket/object, then answer each question in turn.
With no questions on the command line, questions are read from stdin, one per line.
An empty line asks the first suggested question.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		if !decoder.Supported(ref) {
			return fmt.Errorf("unsupported document type: %s", ref)
		}

		ctx := cmd.Context()
		d, err := buildDeps(ctx, docqa.WithBuildProgress(embeddingProgress()))
		if err != nil {
			return err
		}
		defer d.Close()

		view, err := d.service.CreateSession(ctx)
		if err != nil {
			return err
		}
		doc, err := d.source.Fetch(ctx, ref)
		if err != nil {
			return err
		}
		view, err = d.service.Upload(ctx, view.ID, doc)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), view.Status)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", view.DocumentName, view.ChunkCount)
		printSuggestions(cmd.OutOrStdout(), view.Suggestions)

		if len(args) > 1 {
			for _, q := range args[1:] {
				askOne(ctx, cmd.OutOrStdout(), d.service, view.ID, q)
			}
			return nil
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			askOne(ctx, cmd.OutOrStdout(), d.service, view.ID, scanner.Text())
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// askOne prints the turn for question. A blank question selects the first
// suggestion.
func askOne(ctx context.Context, w io.Writer, svc *docqa.Service, id, question string) {
	if strings.TrimSpace(question) == "" {
		if _, err := svc.SelectSuggestion(ctx, id, 0); err != nil {
			fmt.Fprintln(w, docqa.UserMessage(err))
			return
		}
	}

	turn, view, err := svc.Ask(ctx, id, question)
	if err != nil {
		fmt.Fprintln(w, docqa.UserMessage(err))
		return
	}
	fmt.Fprintf(w, "\nQ: %s\nA: %s\n", turn.Question, turn.Answer)
	fmt.Fprintf(w, "   [%s, %d sources]\n", turn.Verdict, len(turn.Sources))
	for _, src := range turn.Sources {
		fmt.Fprintf(w, "   - page %d, %s (%.3f)\n", src.Page, src.ID, src.Score)
	}
	printSuggestions(w, view.Suggestions)
}

func printSuggestions(w io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, "Suggested questions:")
	for i, s := range suggestions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, s)
	}
}

// embeddingProgress draws a bar on stderr while chunks are embedded.
func embeddingProgress() docqa.ProgressFunc {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil || done == 0 {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
