package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/leafdoc/internal/config"
	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
	"github.com/crimson-sun/leafdoc/internal/fetch"
	"github.com/crimson-sun/leafdoc/internal/output"
	"github.com/crimson-sun/leafdoc/internal/output/file"
	"github.com/crimson-sun/leafdoc/internal/output/multi"
	"github.com/crimson-sun/leafdoc/internal/output/stdout"
	"github.com/crimson-sun/leafdoc/internal/output/terminal"
)

var (
	diagnoseJSON  bool
	diagnoseOut   string
	diagnoseStyle string
	diagnoseWidth int
	diagnoseLoadN int
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <path|url>...",
	Short: "Diagnose one or more leaf images",
	Long: `Diagnoses local JPEG/PNG files or http(s) URLs. Results are rendered to the
terminal, or written as JSON with --json. --out also writes the text reports
to a file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	f := diagnoseCmd.Flags()
	f.BoolVar(&diagnoseJSON, "json", false, "write JSON diagnoses to stdout instead of rendering")
	f.StringVarP(&diagnoseOut, "out", "o", "", "also write text reports to this file")
	f.StringVar(&diagnoseStyle, "style", "auto", "terminal style: auto, dark, light, notty")
	f.IntVar(&diagnoseWidth, "width", 80, "terminal word wrap width")
	f.IntVar(&diagnoseLoadN, "parallel", 4, "images loaded concurrently")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}

	eng, cls, err := openEngine(cfg.Engine)
	if err != nil {
		return err
	}
	defer cls.Close()

	out, err := openOutputs(cmd, cfg.Notify)
	if err != nil {
		return err
	}
	defer out.Close()

	uploads, err := loadSources(cmd.Context(), args, cfg.Server.MaxUploadBytes, cfg.Server.MaxPixels, diagnoseLoadN)
	if err != nil {
		return err
	}

	// One inference at a time; loading is the only concurrent part.
	for i, up := range uploads {
		d, err := eng.Process(up.Image)
		if err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
		d.Source = args[i]
		if err := out.Write(cmd.Context(), d); err != nil {
			return err
		}
	}
	return nil
}

func openOutputs(cmd *cobra.Command, notify config.NotifyConfig) (*multi.Multi, error) {
	var outs []output.Output
	if diagnoseJSON {
		outs = append(outs, stdout.NewWriter(cmd.OutOrStdout(), false, true))
	} else {
		t, err := terminal.New(cmd.OutOrStdout(), diagnoseStyle, diagnoseWidth)
		if err != nil {
			return nil, err
		}
		outs = append(outs, t)
	}
	if diagnoseOut != "" {
		f, err := file.New(diagnoseOut)
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}
	if hook := newWebhook(notify); hook != nil {
		outs = append(outs, hook)
	}
	return multi.New(outs...), nil
}

// loadSources reads and decodes every source, at most limit at a time.
// Results keep the order of sources.
func loadSources(ctx context.Context, sources []string, maxBytes, maxPixels int64, limit int) ([]ingest.Upload, error) {
	client := fetch.New(fetch.WithUserAgent("leafdoc/" + rootCmd.Version))
	uploads := make([]ingest.Upload, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range sources {
		g.Go(func() error {
			up, err := loadSource(ctx, client, src, maxBytes, maxPixels)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			slog.Debug("image loaded", "source", src, "content_type", up.ContentType, "bytes", len(up.Data))
			uploads[i] = up
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func loadSource(ctx context.Context, client *fetch.Client, src string, maxBytes, maxPixels int64) (ingest.Upload, error) {
	limit := ingest.WithMaxPixels(maxPixels)
	if isURL(src) {
		data, err := client.Get(ctx, src, maxBytes)
		if err != nil {
			return ingest.Upload{}, err
		}
		return ingest.DecodeBytes(data, limit)
	}

	f, err := os.Open(src)
	if err != nil {
		return ingest.Upload{}, err
	}
	defer f.Close()
	return ingest.Decode(f, maxBytes, limit)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
