package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gallerylinks/internal/export"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <shortId>",
	Short: "Have the server build the zip and save it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		g, err := c.Gallery(ctx, args[0], false)
		if err != nil {
			return err
		}

		files := selectFiles(g.Files, idList)
		if len(files) == 0 {
			return export.ErrNothingSelected
		}
		ids := make([]string, len(files))
		for i, f := range files {
			ids[i] = f.ID
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(outDir, safeName(export.ArchiveName(g.Link.DisplayTitle())))
		if err := writeFile(path, func(w io.Writer) error {
			return c.Archive(ctx, args[0], ids, w)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d photos to %s\n", len(files), path)
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to save into")
	archiveCmd.Flags().StringSliceVar(&idList, "ids", nil, "Only these file IDs (comma separated)")
}
