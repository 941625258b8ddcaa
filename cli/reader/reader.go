package reader

import (
	"fmt"
	"os"

	"github.com/gunwale-io/bailer/engine"
	"github.com/gunwale-io/bailer/store"
	"github.com/gunwale-io/bailer/types"
)

// InspectDump loads a dump file and decodes whatever artifacts it carries.
func InspectDump(path string) (*DumpView, error) {
	record, err := store.Load(path)
	if err != nil {
		return nil, err
	}

	view := &DumpView{
		Path:  path,
		Seeds: record.SeedList(),
	}
	if info, err := os.Stat(path); err == nil {
		view.SizeBytes = info.Size()
	}

	if record.Invert != nil {
		view.InvertBytes = record.Invert.Size()
		scan, err := scanView(record.Invert)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", path, err)
		}
		view.Scan = scan
	}
	if record.Test != nil {
		view.TestBytes = record.Test.Size()
		test, err := testView(record.Test)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", path, err)
		}
		view.Test = test
	}
	return view, nil
}

func scanView(a *types.Artifact) (*ScanView, error) {
	result, err := engine.DecodeInversion(a)
	if err != nil {
		return nil, err
	}
	view := &ScanView{
		Workspace:  result.Workspace,
		POI:        result.POI,
		Calculator: string(result.Calculator),
		Statistic:  string(result.Statistic),
		CL:         result.CL,
		Points:     make([]PointView, 0, len(result.Points)),
	}
	for _, pt := range result.Points {
		view.Points = append(view.Points, PointView{
			X:           pt.X,
			Toys:        pt.Toys(),
			CLs:         pt.CLs(),
			CLsb:        pt.CLsb(),
			CLb:         pt.CLb(),
			ExpectedCLs: pt.ExpectedCLs(0),
		})
	}
	return view, nil
}

func testView(a *types.Artifact) (*TestView, error) {
	result, err := engine.DecodeTest(a)
	if err != nil {
		return nil, err
	}
	return &TestView{
		Toys:         result.Toys(),
		NullPValue:   result.NullPValue(),
		AltPValue:    result.AltPValue(),
		Significance: result.Significance(),
	}, nil
}
