package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/spf13/cobra"
)

func newNumberCmd(root *rootOptions) *cobra.Command {
	var in string
	var offset int

	cmd := &cobra.Command{
		Use:   "number",
		Short: "Print the section numbering of a paper",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(in)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("offset") && root.cfg.Pipeline.BodyOffset > 0 {
				offset = root.cfg.Pipeline.BodyOffset
			}
			printNumbered(cmd.OutOrStdout(), section.Number(snap.Sections, offset), 0)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file")
	cmd.Flags().IntVar(&offset, "offset", section.DefaultBodyOffset, "Number of the first top-level body section")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func printNumbered(w io.Writer, nodes []section.Numbered, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s\t%s\n", strings.Repeat("  ", depth), n.SectionNumber, n.Title)
		printNumbered(w, n.Sections, depth+1)
	}
}
