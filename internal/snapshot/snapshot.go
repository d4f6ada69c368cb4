// Package snapshot renders a standalone HTML report of one dashboard selection
// and keeps it in storage.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/sync/errgroup"

	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
	"go-co2-emissions-dashboard/internal/render"
	"go-co2-emissions-dashboard/internal/storage"
	"go-co2-emissions-dashboard/internal/views"
)

// Prefix is the storage folder holding snapshots.
const Prefix = "snapshots/"

// Report is a rendered snapshot.
type Report struct {
	ID        string          `json:"id"`
	Selection views.Selection `json:"selection"`
	CreatedAt time.Time       `json:"created_at"`
	Markdown  string          `json:"-"`
	HTML      []byte          `json:"-"`
}

// Name is the storage object name of the report.
func (r *Report) Name() string {
	return fmt.Sprintf("%s%d-%s-%s.html", Prefix, r.Selection.Year, r.Selection.Metric, r.ID)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Build renders the charts of u on one page together with a markdown summary.
func Build(ctx context.Context, u *views.Update, size render.Size) (*Report, error) {
	if u == nil {
		return nil, fmt.Errorf("build snapshot: nil update")
	}
	rep := &Report{
		ID:        uuid.NewString(),
		Selection: u.Selection,
		CreatedAt: time.Now().UTC(),
		Markdown:  Markdown(u),
	}

	var summaryHTML, pageHTML bytes.Buffer
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := markdown.Convert([]byte(rep.Markdown), &summaryHTML); err != nil {
			return fmt.Errorf("convert summary markdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		title := fmt.Sprintf("CO2 Emissions Snapshot %d", u.Selection.Year)
		page, err := render.NewPage(title, size, u.WorldMap, u.FuelBar, u.FuelArea)
		if err != nil {
			return err
		}
		if err := page.Render(&pageHTML); err != nil {
			return fmt.Errorf("render snapshot page: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.HTML = injectSummary(pageHTML.Bytes(), summaryHTML.Bytes())
	logging.Component("snapshot").Debug("snapshot built",
		"id", rep.ID,
		"selection", u.Selection.String(),
		"bytes", len(rep.HTML),
	)
	return rep, nil
}

// Store writes the report and returns the stored object.
func Store(ctx context.Context, client storage.Client, rep *Report) (storage.Object, error) {
	name := rep.Name()
	if err := client.Put(ctx, name, rep.HTML); err != nil {
		return storage.Object{}, fmt.Errorf("store snapshot: %w", err)
	}
	logging.Component("snapshot").Info("snapshot stored", "id", rep.ID, "location", client.Location(name))
	return storage.Object{
		Name:    name,
		Size:    int64(len(rep.HTML)),
		Updated: rep.CreatedAt,
		URL:     client.Location(name),
	}, nil
}

// List returns stored snapshots, newest name first.
func List(ctx context.Context, client storage.Client) ([]storage.Object, error) {
	objs, err := client.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := objs[:0]
	for _, o := range objs {
		if strings.HasSuffix(o.Name, ".html") {
			out = append(out, o)
		}
	}
	return out, nil
}

// Markdown summarises the update as a markdown document.
func Markdown(u *views.Update) string {
	var b strings.Builder
	s := u.Summary
	fmt.Fprintf(&b, "# Global CO2 Emissions Dashboard\n\n")
	fmt.Fprintf(&b, "Year **%d**, metric **%s**. Generated %s.\n\n",
		u.Selection.Year, u.Selection.Metric.Label(), u.GeneratedAt.UTC().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Statistics\n\n")
	fmt.Fprintf(&b, "| Statistic | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Countries | %d |\n", s.Countries)
	fmt.Fprintf(&b, "| Reporting | %d |\n", s.Stats.Count)
	fmt.Fprintf(&b, "| Missing | %d |\n", s.Stats.Missing)
	fmt.Fprintf(&b, "| Sum | %s |\n", formatValue(&s.Stats.Sum))
	fmt.Fprintf(&b, "| Mean | %s |\n", formatValue(s.Stats.Mean))
	fmt.Fprintf(&b, "| Median | %s |\n", formatValue(s.Stats.Median))
	fmt.Fprintf(&b, "| Std. dev. | %s |\n", formatValue(s.Stats.StdDev))
	fmt.Fprintf(&b, "| 90th percentile | %s |\n", formatValue(s.Stats.P90))
	if s.Stats.Max != nil {
		fmt.Fprintf(&b, "| Highest | %s (%s) |\n", formatValue(s.Stats.Max), s.Stats.MaxCountry)
	}
	if s.Stats.Min != nil {
		fmt.Fprintf(&b, "| Lowest | %s (%s) |\n", formatValue(s.Stats.Min), s.Stats.MinCountry)
	}

	fmt.Fprintf(&b, "\n## Top Emitters\n\n")
	if len(s.TopEmitters) == 0 {
		fmt.Fprintf(&b, "No data for this year.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "| # | Country | Total (%s) |\n|---:|---|---:|\n", emissions.MetricTotal.Label())
	for i, ct := range s.TopEmitters {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, escapeCell(ct.Country), render.FormatThousands(ct.Total))
	}
	return b.String()
}

func formatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "n/a"
	}
	if math.Abs(*v) >= 1000 {
		return render.FormatThousands(*v)
	}
	return fmt.Sprintf("%.2f", *v)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func injectSummary(page, summary []byte) []byte {
	section := append([]byte(`<section class="snapshot-summary" style="font-family:sans-serif;color:#FFFFFF;background:#212529;padding:16px;">`), summary...)
	section = append(section, []byte("</section>")...)

	idx := bytes.Index(page, []byte("<body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), section...)
	}
	idx += len("<body>")
	out := make([]byte, 0, len(page)+len(section))
	out = append(out, page[:idx]...)
	out = append(out, section...)
	out = append(out, page[idx:]...)
	return out
}
