package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gallerylinks/internal/export"
	"gallerylinks/internal/models"
)

var (
	outDir  string
	idList  []string
	asZip   bool
	picking bool
	delay   = export.DefaultDelay
)

var downloadCmd = &cobra.Command{
	Use:   "download <shortId>",
	Short: "Download a gallery's photos one by one or as a zip",
	Long: `Downloads every photo of the gallery, or only those given with --ids.
Without --zip the photos are saved one at a time with a short pause between
them. With --zip they are packed into <title>-photos.zip locally.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

var listCmd = &cobra.Command{
	Use:   "list <shortId>",
	Short: "List a gallery's photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		g, err := c.Gallery(ctx, args[0], picking)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%d photos)\n", g.Link.DisplayTitle(), len(g.Files))
		for _, f := range g.Files {
			fmt.Fprintf(out, "%s\t%s\t%s\n", f.ID, f.Name, f.HumanSize())
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to save into")
	downloadCmd.Flags().StringSliceVar(&idList, "ids", nil, "Only these file IDs (comma separated)")
	downloadCmd.Flags().BoolVar(&asZip, "zip", false, "Save a single zip archive")
	downloadCmd.Flags().DurationVar(&delay, "delay", export.DefaultDelay, "Pause between individual downloads")
	for _, c := range []*cobra.Command{downloadCmd, listCmd} {
		c.Flags().BoolVar(&picking, "picking", false, "Use picking-mode URLs")
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	c, err := newClient()
	if err != nil {
		return err
	}
	g, err := c.Gallery(ctx, args[0], picking)
	if err != nil {
		return err
	}

	files := selectFiles(g.Files, idList)
	if len(files) == 0 {
		return export.ErrNothingSelected
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	progress := newProgress(cmd.ErrOrStderr(), len(files))
	defer progress.done()

	if asZip {
		path := filepath.Join(outDir, safeName(export.ArchiveName(g.Link.DisplayTitle())))
		if err := writeFile(path, func(w io.Writer) error {
			return export.WriteZip(ctx, w, files, c, progress.update)
		}); err != nil {
			return err
		}
		progress.done()
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d photos to %s\n", len(files), path)
		return nil
	}

	names := export.NewNamer()
	save := func(ctx context.Context, f models.File) error {
		body, _, err := c.Open(ctx, f.ID)
		if err != nil {
			return err
		}
		defer body.Close()
		return writeFile(filepath.Join(outDir, safeName(names.Name(f))), func(w io.Writer) error {
			_, err := io.Copy(w, body)
			return err
		})
	}
	if err := export.Individual(ctx, files, save, delay, progress.update); err != nil {
		return err
	}
	progress.done()
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d photos to %s\n", len(files), outDir)
	return nil
}

// selectFiles keeps the files whose IDs were asked for, in gallery order.
// No IDs means all files.
func selectFiles(files []models.File, ids []string) []models.File {
	if len(ids) == 0 {
		return files
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = true
	}
	var out []models.File
	for _, f := range files {
		if want[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// safeName strips directories from a storage file name.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "photo"
	}
	return name
}

// writeFile writes through a temp file so an aborted download leaves nothing
// half-written behind.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gallery-dl-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// progress prints the completed percentage, in place on a terminal.
type progress struct {
	w        io.Writer
	total    int
	terminal bool
	last     int
	finished bool
}

func newProgress(w io.Writer, total int) *progress {
	p := &progress{w: w, total: total, last: -1}
	if f, ok := w.(*os.File); ok {
		p.terminal = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progress) update(pct int) {
	if pct == p.last {
		return
	}
	p.last = pct
	if p.terminal {
		fmt.Fprintf(p.w, "\rDownloading %d photos... %3d%%", p.total, pct)
		return
	}
	if pct == 100 || pct%25 == 0 {
		fmt.Fprintf(p.w, "Downloading %d photos... %d%%\n", p.total, pct)
	}
}

func (p *progress) done() {
	if p.terminal && !p.finished && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
	p.finished = true
}
