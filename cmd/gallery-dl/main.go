// Command gallery-dl downloads photos from a gallery server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gallerylinks/internal/client"
	"gallerylinks/internal/validation"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "gallery-dl",
	Short:         "Download photos from shared galleries",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultServer := os.Getenv("GALLERY_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer, "Gallery server base URL (or set GALLERY_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(listCmd)
}

func newClient() (*client.Client, error) {
	if ok, msg := validation.ValidateURL(serverURL); !ok {
		return nil, fmt.Errorf("invalid --server %q: %s", serverURL, msg)
	}
	return client.New(serverURL, nil), nil
}

// commandContext is cancelled on Ctrl-C or when the timeout elapses.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
