package reader

import (
	"path/filepath"
	"testing"

	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/store"
	"github.com/gunwale-io/bailer/types"
)

func writeDump(t *testing.T, record *types.DumpRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan"+store.Suffix)
	if err := store.Save(path, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func sampleInversion(t *testing.T) *types.Artifact {
	t.Helper()
	result := &engine.InversionResult{
		Name:       "scan",
		Workspace:  "counting",
		POI:        "mu",
		Calculator: types.CalculatorFrequentist,
		Statistic:  types.StatisticOneSidedProfileLikelihood,
		CL:         0.95,
		Points: []*engine.ScanPoint{
			{X: 0, ObsStat: 0.1, HaveToys: true, NullStats: []float64{0.1, 0.2}, AltStats: []float64{0.1, 0.3}},
			{X: 1, ObsStat: 2.5, HaveToys: true, NullStats: []float64{0.5, 0.9}, AltStats: []float64{0.2, 0.4}},
		},
	}
	artifact, err := engine.EncodeInversion(result)
	if err != nil {
		t.Fatalf("EncodeInversion failed: %v", err)
	}
	return artifact
}

func sampleTest(t *testing.T) *types.Artifact {
	t.Helper()
	result := &engine.TestResult{
		Name:       "test",
		Workspace:  "counting",
		POI:        "mu",
		Calculator: types.CalculatorFrequentist,
		Statistic:  types.StatisticProfileLikelihood,
		Fit:        types.FitDiscovery,
		ObsStat:    3.2,
		HaveToys:   true,
		NullStats:  []float64{0.1, 0.5, 4.0},
		AltStats:   []float64{2.0, 3.5, 5.0},
	}
	artifact, err := engine.EncodeTest(result)
	if err != nil {
		t.Fatalf("EncodeTest failed: %v", err)
	}
	return artifact
}

func TestInspectDump_FullRecord(t *testing.T) {
	record := types.NewDumpRecord(0x0102_0001, "run-1", sampleInversion(t), sampleTest(t))
	path := writeDump(t, record)

	view, err := InspectDump(path)
	if err != nil {
		t.Fatalf("InspectDump failed: %v", err)
	}

	if view.Path != path {
		t.Errorf("expected path %q, got %q", path, view.Path)
	}
	if view.SizeBytes <= 0 {
		t.Errorf("expected positive file size, got %d", view.SizeBytes)
	}
	if len(view.Seeds) != 1 || view.Seeds[0] != 0x0102_0001 {
		t.Errorf("unexpected seeds: %v", view.Seeds)
	}

	if view.Scan == nil {
		t.Fatal("expected a scan view")
	}
	if view.Scan.Workspace != "counting" || view.Scan.POI != "mu" {
		t.Errorf("scan identity mismatch: %+v", view.Scan)
	}
	if len(view.Scan.Points) != 2 {
		t.Fatalf("expected 2 scan points, got %d", len(view.Scan.Points))
	}
	if view.Scan.Points[0].X != 0 || view.Scan.Points[1].X != 1 {
		t.Errorf("points out of order: %+v", view.Scan.Points)
	}
	if view.Scan.Points[0].Toys != 2 {
		t.Errorf("expected 2 toys at the first point, got %d", view.Scan.Points[0].Toys)
	}

	if view.Test == nil {
		t.Fatal("expected a test view")
	}
	if view.Test.Toys != 3 {
		t.Errorf("expected 3 test toys, got %d", view.Test.Toys)
	}
	if view.InvertBytes <= 0 || view.TestBytes <= 0 {
		t.Errorf("expected artifact sizes, got invert=%d test=%d", view.InvertBytes, view.TestBytes)
	}
}

func TestInspectDump_InvertOnly(t *testing.T) {
	record := types.NewDumpRecord(7, "run-2", sampleInversion(t), nil)
	path := writeDump(t, record)

	view, err := InspectDump(path)
	if err != nil {
		t.Fatalf("InspectDump failed: %v", err)
	}
	if view.Scan == nil {
		t.Error("expected a scan view")
	}
	if view.Test != nil {
		t.Error("expected no test view")
	}
	if view.TestBytes != 0 {
		t.Errorf("expected zero test bytes, got %d", view.TestBytes)
	}
}

func TestInspectDump_MissingFile(t *testing.T) {
	_, err := InspectDump(filepath.Join(t.TempDir(), "absent"+store.Suffix))
	if err == nil {
		t.Fatal("expected error for missing dump")
	}
}
