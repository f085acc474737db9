package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/RichardoC/quanta/internal/markdown"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [text...]",
		Short: "Render chat Markdown to HTML",
		Long:  "Render chat Markdown to an HTML fragment. Reads standard input when no text is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) > 0 {
				text = strings.Join(args, " ")
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				text = string(data)
			}
			fmt.Fprintln(cmd.OutOrStdout(), markdown.Render(text))
			return nil
		},
	}
}
