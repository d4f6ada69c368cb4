package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go-co2-emissions-dashboard/internal/emissions"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "co2.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSavedViewsCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.UpsertView(ctx, " nineties ", "mid decade", 1996, "per_capita")
	if err != nil {
		t.Fatalf("UpsertView: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	againID, err := s.UpsertView(ctx, "nineties", "updated", 1999, "")
	if err != nil {
		t.Fatalf("UpsertView update: %v", err)
	}
	if againID != id {
		t.Fatalf("upsert by name should keep id %d, got %d", id, againID)
	}

	if _, err := s.UpsertView(ctx, "alpha", "", 2000, "total"); err != nil {
		t.Fatalf("UpsertView alpha: %v", err)
	}

	view, err := s.GetView(ctx, id)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if view.Name != "nineties" || view.Description != "updated" || view.Year != 1999 || view.Metric != "total" {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.CreatedAt == nil || view.UpdatedAt == nil {
		t.Errorf("timestamps not populated: %+v", view)
	}

	views, err := s.ListViews(ctx, 10)
	if err != nil {
		t.Fatalf("ListViews: %v", err)
	}
	if len(views) != 2 || views[0].Name != "alpha" {
		t.Fatalf("expected two views ordered by name, got %+v", views)
	}

	n, err := s.DeleteView(ctx, id)
	if err != nil || n != 1 {
		t.Fatalf("DeleteView = %d, %v", n, err)
	}
	if _, err := s.GetView(ctx, id); !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
	if n, _ := s.DeleteView(ctx, id); n != 0 {
		t.Fatalf("second delete affected %d rows", n)
	}
}

func TestUpsertViewRequiresName(t *testing.T) {
	if _, err := newTestStore(t).UpsertView(context.Background(), "", "", 1996, "total"); err == nil {
		t.Fatal("expected error")
	}
}

func TestImportAndLoadEmissions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	records := []emissions.Record{
		{Country: "China", ISOCode: "CHN", Year: 1996, Total: 3100, Coal: 2250, Oil: 520, Gas: 55, Cement: 210, Flaring: 2, Other: math.NaN(), PerCapita: 2.6},
		{Country: "Brazil", Year: 1996, Total: 300, Coal: math.NaN(), Oil: 200, Gas: 10, Cement: 20, Flaring: 1, Other: math.NaN(), PerCapita: 1.8},
	}
	n, err := s.ImportEmissions(ctx, "emissions", records)
	if err != nil {
		t.Fatalf("ImportEmissions: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows", n)
	}

	// A second import replaces the first.
	if _, err := s.ImportEmissions(ctx, "emissions", records[:1]); err != nil {
		t.Fatalf("second ImportEmissions: %v", err)
	}
	got, err := s.LoadEmissions(ctx, "emissions")
	if err != nil {
		t.Fatalf("LoadEmissions: %v", err)
	}
	if len(got) != 1 || got[0].Country != "China" || got[0].ISOCode != "CHN" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if got[0].Total != 3100 || !math.IsNaN(got[0].Other) {
		t.Errorf("values not round-tripped: %+v", got[0])
	}
}

func TestImportRejectsBadTableName(t *testing.T) {
	_, err := newTestStore(t).ImportEmissions(context.Background(), "emissions; DROP TABLE saved_views", nil)
	if err == nil {
		t.Fatal("expected invalid table error")
	}
}
