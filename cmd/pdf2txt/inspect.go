// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2txt/internal/convert"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <merged.txt>",
	Short: "List the documents inside a merged text file",
	Long: `Inspect splits a merged text file back into its "===== name ====="
sections and prints each section's name and character count. Use --name
to print the text of one section.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		name, _ := cmd.Flags().GetString("name")
		return runInspect(data, name, cmd.OutOrStdout())
	},
}

func init() {
	inspectCmd.Flags().String("name", "", "print the text of the section with this name")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(merged []byte, name string, out io.Writer) error {
	sections := convert.SplitMerged(merged)

	if name != "" {
		for _, s := range sections {
			if s.Name == name {
				fmt.Fprintln(out, s.Text)
				return nil
			}
		}
		return fmt.Errorf("no section named %q", name)
	}

	var total int
	for i, s := range sections {
		n := utf8.RuneCountInString(s.Text)
		total += n
		fmt.Fprintf(out, "%3d  %-40s %8d chars\n", i+1, s.Name, n)
	}
	fmt.Fprintf(out, "\n%d section(s), %d chars\n", len(sections), total)
	return nil
}
