package main

import (
	"fmt"
	"os"

	"github.com/fyerfyer/scholar-assistant/internal/document"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	in     string
	out    string
	lang   string
	notes  bool
	format string
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a snapshot as a markdown or html reading view",
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := paper.ParseLanguage(opts.lang)
			if err != nil {
				return err
			}
			snap, err := readSnapshot(opts.in)
			if err != nil {
				return err
			}

			view := document.NewView(snap, lang, opts.notes)
			var data []byte
			switch opts.format {
			case "md", "markdown":
				data = []byte(document.RenderMarkdown(view))
			case "html":
				data = document.RenderHTML(view)
			default:
				return fmt.Errorf("unsupported render format: %s", opts.format)
			}

			if opts.out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			root.logger.WithField("file", opts.out).Debug("Writing rendered view")
			return os.WriteFile(opts.out, data, 0644)
		},
	}

	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "Input file")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file, stdout when empty")
	cmd.Flags().StringVar(&opts.lang, "lang", "en", "View language: en or zh")
	cmd.Flags().BoolVar(&opts.notes, "notes", false, "Include summaries and assessment in the zh view")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "Output format: md or html")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
