package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go-co2-emissions-dashboard/internal/render"
	"go-co2-emissions-dashboard/internal/snapshot"
	"go-co2-emissions-dashboard/internal/storage"
)

var (
	exportYear   int
	exportMetric string
	exportFormat string
	exportFigure string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot report or a single chart",
	Long: `Write a snapshot report or a single chart for one selection.

Without --figure, --format html builds a snapshot page with all three charts
and a summary. It is written to --out, or to the snapshot storage
(APP_SNAPSHOT_DIR or APP_SNAPSHOT_GCS_BUCKET) when --out is empty.

With --figure the named chart is written as HTML or PNG. Use --out - for stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "year to export (default: APP_DEFAULT_YEAR or the latest year)")
	exportCmd.Flags().StringVar(&exportMetric, "metric", "", "total or per_capita (default: APP_DEFAULT_METRIC)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "html", "html or png")
	exportCmd.Flags().StringVar(&exportFigure, "figure", "", "world-map, fuel-bar or fuel-area (required for png)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file, - for stdout")
}

func runExport(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != "html" && format != "png" {
		return fmt.Errorf("unsupported format %q (expected html or png)", exportFormat)
	}
	if format == "png" && exportFigure == "" {
		return fmt.Errorf("--figure is required for png export")
	}

	ctx := cmd.Context()
	dash, cleanup, err := loadDashboard(ctx, appConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	sel, err := resolveSelection(appConfig, dash.Table(), exportYear, exportMetric)
	if err != nil {
		return err
	}

	if exportFigure != "" {
		fig, err := dash.Figure(ctx, exportFigure, sel)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if format == "png" {
			err = render.RenderPNG(&buf, fig, render.PNGSize.Width, render.PNGSize.Height)
		} else {
			err = render.RenderHTML(&buf, fig, render.DefaultSize)
		}
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = fmt.Sprintf("%s-%d-%s.%s", exportFigure, sel.Year, sel.Metric, format)
		}
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), out, buf.Bytes())
	}

	u, err := dash.Update(ctx, sel)
	if err != nil {
		return err
	}
	rep, err := snapshot.Build(ctx, u, render.DefaultSize)
	if err != nil {
		return err
	}
	if exportOut != "" {
		return writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), exportOut, rep.HTML)
	}

	client, err := storage.New(ctx, appConfig.SnapshotDir, appConfig.SnapshotGCSBucket)
	if err != nil {
		return err
	}
	defer client.Close()
	obj, err := snapshot.Store(ctx, client, rep)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "snapshot %s written to %s\n", rep.ID, obj.URL)
	return nil
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(stdout, stderr io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
