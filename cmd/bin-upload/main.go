// Package main is the command line client of the relay. It uploads .bin files
// one at a time and saves the returned CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/domain"
	"github.com/jonno85/bin-relay/internal/service"
)

var errUploadFailed = errors.New("upload failed")

func main() {
	config.LoadDotEnv()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var relayURL, outputDir string
	root := &cobra.Command{
		Use:          "bin-upload",
		Short:        "Upload .bin recordings to the relay and save the metrics as CSV",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay endpoint (overrides RELAY_URL)")
	root.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for CSV files (overrides OUTPUT_DIR)")

	loadConfig := func() (config.CoordinatorConfig, error) {
		cfg, err := config.LoadCoordinatorConfig()
		if err != nil {
			return cfg, err
		}
		if relayURL != "" {
			cfg.RelayURL = relayURL
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		return cfg, cfg.Validate()
	}

	root.AddCommand(&cobra.Command{
		Use:   "upload <file>",
		Short: "Upload one file and write its CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			coordinator := service.NewUploadCoordinator(cfg)
			snap, csvPath, err := service.UploadFromPath(cmd.Context(), coordinator, args[0], cfg.OutputDir)
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap, csvPath)
			if snap.State != service.StateSuccess {
				return errUploadFailed
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload every .bin file that settles in dir until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			watcher := service.NewPathWatcher(cfg, service.NewUploadCoordinator(cfg), func(path string, snap service.Snapshot) {
				fmt.Fprintf(out, "%s:\n", path)
				printSnapshot(out, snap, "")
			})
			if err := watcher.AddAndWatchPath(args[0]); err != nil {
				return err
			}
			<-cmd.Context().Done()
			return watcher.Close()
		},
	})
	return root
}

func printSnapshot(w io.Writer, snap service.Snapshot, csvPath string) {
	switch snap.Result() {
	case service.ResultSuccess:
		fmt.Fprintf(w, "Processed %s in %s\n", snap.FileName, snap.ProcessingTime)
		if snap.Metrics != nil {
			for _, m := range domain.DisplayMetrics(snap.Metrics) {
				fmt.Fprintf(w, "  %-18s %s %s\n", m.Label, domain.FormatValue(m.Value), m.Unit)
			}
		}
		if csvPath != "" {
			fmt.Fprintf(w, "CSV saved to %s\n", csvPath)
		}
	case service.ResultTimeout:
		fmt.Fprintf(w, "%s\nTry a smaller file or retry when the service is less busy.\n", snap.ErrorMessage)
	case service.ResultSizeError:
		fmt.Fprintf(w, "%s\nThe file exceeds the upload limit, split or compress it.\n", snap.ErrorMessage)
	default:
		fmt.Fprintln(w, snap.ErrorMessage)
	}
}
