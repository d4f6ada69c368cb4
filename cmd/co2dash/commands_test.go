package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSummaryCommand(t *testing.T) {
	withDataset(t)

	out, err := execute(t, "summary", "--year", "1996", "--top", "2", "--no-color", "-q")
	if err != nil {
		t.Fatalf("summary failed: %v\n%s", err, out)
	}
	for _, want := range []string{"CO2 emissions in 1996", "Top 2 emitters", "USA", "5,600", "China"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Global") {
		t.Errorf("aggregate row should be excluded:\n%s", out)
	}
	if strings.Contains(out, " 3.") {
		t.Errorf("only the top 2 should be listed:\n%s", out)
	}
}

func TestSummaryCommand_NoDataYear(t *testing.T) {
	withDataset(t)

	out, err := execute(t, "summary", "--year", "1900", "-q")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !strings.Contains(out, "No data for this year.") {
		t.Errorf("expected no-data message, got:\n%s", out)
	}
}

func TestSummaryCommand_BadMetric(t *testing.T) {
	withDataset(t)

	if _, err := execute(t, "summary", "--metric", "methane", "-q"); err == nil {
		t.Fatal("expected invalid metric error")
	}
}

func TestExportCommand(t *testing.T) {
	dir := withDataset(t)

	png := filepath.Join(dir, "bar.png")
	if out, err := execute(t, "export", "--format", "png", "--figure", "fuel-bar", "--year", "1996", "--out", png, "-q"); err != nil {
		t.Fatalf("png export failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("export did not write a png")
	}

	page := filepath.Join(dir, "snapshot.html")
	if out, err := execute(t, "export", "--year", "1996", "--out", page, "-q"); err != nil {
		t.Fatalf("html export failed: %v\n%s", err, out)
	}
	html, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(html), "snapshot-summary") {
		t.Fatal("snapshot page has no summary")
	}

	out, err := execute(t, "export", "--year", "1996", "-q")
	if err != nil {
		t.Fatalf("stored export failed: %v\n%s", err, out)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "snapshots", "snapshots"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one stored snapshot, got %v (%v)", entries, err)
	}
}

func TestExportCommand_Errors(t *testing.T) {
	withDataset(t)

	if _, err := execute(t, "export", "--format", "svg", "-q"); err == nil {
		t.Error("expected unsupported format error")
	}
	if _, err := execute(t, "export", "--format", "png", "-q"); err == nil {
		t.Error("expected missing figure error")
	}
	if _, err := execute(t, "export", "--format", "png", "--figure", "world-map", "--out", "-", "-q"); err == nil {
		t.Error("expected world map png to be unsupported")
	}
}

func TestImportCommand(t *testing.T) {
	dir := withDataset(t)
	db := filepath.Join(dir, "co2.db")

	out, err := execute(t, "import", "--csv", os.Getenv("APP_DATA_PATH"), "--sqlite", db, "-q")
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "imported 6 rows") {
		t.Errorf("unexpected import output %q", out)
	}

	// Serve the summary from the imported database.
	t.Setenv("APP_DATA_PATH", db)
	out, err = execute(t, "summary", "--year", "1996", "-q")
	if err != nil {
		t.Fatalf("summary from sqlite failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "USA") || strings.Contains(out, "Global") {
		t.Errorf("unexpected summary from sqlite:\n%s", out)
	}
}

func TestImportCommand_RequiresFlags(t *testing.T) {
	withDataset(t)
	if _, err := execute(t, "import", "--csv", "x.csv"); err == nil {
		t.Fatal("expected missing --sqlite error")
	}
}
