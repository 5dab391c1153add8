package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-claude-transcripts/internal/data/archive"
	"github.com/penwyp/go-claude-transcripts/internal/presentation/web"
)

var (
	serveAddr    string
	serveArchive bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <output-dir>",
	Short: "Serve a generated transcript over HTTP",
	Long: `Serves a generated output directory. Over HTTP the annotation runtime can fetch a published
annotations.json. With --archive the annotation archive is exposed under /api/annotations.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", envDefaults.Addr,
		"Listen address")
	serveCmd.Flags().BoolVar(&serveArchive, "archive", false,
		"Expose the annotation archive")
	serveCmd.Flags().StringVar(&storeDriver, "store", envDefaults.StoreDriver,
		"Archive driver (bolt, sqlite)")
	serveCmd.Flags().StringVar(&storePath, "store-path", envDefaults.StorePath,
		"Archive file")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := expandPath(args[0])
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}

	var kv archive.KV
	if serveArchive {
		var err error
		if kv, err = openArchive(); err != nil {
			return err
		}
		defer kv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", dir, serveAddr)
	return web.NewServer(dir, kv).Start(ctx, serveAddr)
}
