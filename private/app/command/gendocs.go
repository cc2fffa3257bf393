// Copyright 2023 Anapaya Systems

package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// subheading matches markdown headings of level two and deeper.
var subheading = regexp.MustCompile(`(?m)^#(#+) `)

// NewGendocs returns a hidden command that writes one markdown page per
// command of the tree into a directory.
func NewGendocs(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:    "gendocs <directory>",
		Short:  "Generate documentation",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			root.DisableAutoGenTag = true
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			pages, err := writePages(root, dir)
			if err != nil {
				return fmt.Errorf("generating documentation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pages for %s to %s\n",
				pages, pather.CommandPath(), dir)
			return nil
		},
	}
}

func pageName(cmd *cobra.Command) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "_")
}

// writePages writes the page of cmd and its visible subcommands and returns
// the number of pages written.
func writePages(cmd *cobra.Command, dir string) (int, error) {
	var page bytes.Buffer
	if err := doc.GenMarkdown(cmd, &page); err != nil {
		return 0, err
	}
	// Promote headings so that every page has a single top level heading.
	body := subheading.ReplaceAll(page.Bytes(), []byte("$1 "))

	written := 1
	var index []string
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() || sub.IsAdditionalHelpTopicCommand() {
			continue
		}
		n, err := writePages(sub, dir)
		if err != nil {
			return 0, err
		}
		written += n
		index = append(index, fmt.Sprintf("- [%s](%s.md)\n", sub.CommandPath(), pageName(sub)))
	}
	if len(index) > 0 {
		body = append(body, "\n## Subcommands\n\n"...)
		body = append(body, strings.Join(index, "")...)
	}
	return written, os.WriteFile(filepath.Join(dir, pageName(cmd)+".md"), body, 0o644)
}
