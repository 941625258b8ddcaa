package engine

import (
	"errors"
	"fmt"

	"github.com/gunwale-io/bailer/types"
)

// ErrMergeNoToys rejects merging results that carry no toy ensembles.
// Closed-form results are complete as computed; concatenating two of them
// has no defined meaning and hides a double-computed scan.
var ErrMergeNoToys = errors.New("results without toy ensembles cannot be merged")

// MergeInversions combines two partial scan results into a new one. Points
// tested by both inputs have their toy ensembles concatenated; points tested
// by only one are carried over. Both inputs must describe the same scan of
// the same data. Neither input is modified.
func MergeInversions(a, b *InversionResult) (*InversionResult, error) {
	if a == nil || b == nil {
		return nil, errors.New("cannot merge a nil scan result")
	}
	if err := sameScan(a, b); err != nil {
		return nil, err
	}
	merged := &InversionResult{
		Name:       a.Name,
		Workspace:  a.Workspace,
		POI:        a.POI,
		Calculator: a.Calculator,
		Statistic:  a.Statistic,
		CL:         a.CL,
		Points:     make([]*ScanPoint, 0, len(a.Points)+len(b.Points)),
	}
	for _, p := range a.Points {
		merged.Points = append(merged.Points, clonePoint(p))
	}
	for _, bp := range b.Points {
		mp := merged.PointAt(bp.X)
		if mp == nil {
			merged.Points = append(merged.Points, clonePoint(bp))
			continue
		}
		if !mp.HaveToys || !bp.HaveToys {
			return nil, fmt.Errorf("point %v: %w", bp.X, ErrMergeNoToys)
		}
		if mp.ObsStat != bp.ObsStat {
			return nil, fmt.Errorf("point %v: observed statistic %v does not match %v; the partial results describe different data", bp.X, mp.ObsStat, bp.ObsStat)
		}
		mp.NullStats = append(mp.NullStats, bp.NullStats...)
		mp.AltStats = append(mp.AltStats, bp.AltStats...)
	}
	merged.normalize()
	return merged, nil
}

// MergeTests combines two partial hypothesis-test results by concatenating
// their toy ensembles. Both inputs must test the same hypotheses on the
// same data. Neither input is modified.
func MergeTests(a, b *TestResult) (*TestResult, error) {
	if a == nil || b == nil {
		return nil, errors.New("cannot merge a nil test result")
	}
	if err := sameTest(a, b); err != nil {
		return nil, err
	}
	if !a.HaveToys || !b.HaveToys {
		return nil, ErrMergeNoToys
	}
	merged := *a
	merged.NullStats = append(append([]float64(nil), a.NullStats...), b.NullStats...)
	merged.AltStats = append(append([]float64(nil), a.AltStats...), b.AltStats...)
	return &merged, nil
}

// MergeRecords combines two dump records: seed sets must be disjoint, and
// whichever artifacts both records carry are merged pairwise. A record
// missing one artifact kind adopts the other record's.
func MergeRecords(a, b *types.DumpRecord) (*types.DumpRecord, error) {
	seeds, err := types.CombineSeeds(a.Seeds, b.Seeds)
	if err != nil {
		return nil, err
	}
	invert, err := mergeOptional(a.Invert, b.Invert, MergeInversionArtifacts)
	if err != nil {
		return nil, err
	}
	test, err := mergeOptional(a.Test, b.Test, MergeTestArtifacts)
	if err != nil {
		return nil, err
	}
	return &types.DumpRecord{Seeds: seeds, Invert: invert, Test: test}, nil
}

// MergeInversionArtifacts merges two encoded scan results through the
// codec, the combine step run inside merge workers.
func MergeInversionArtifacts(a, b *types.Artifact) (*types.Artifact, error) {
	ra, err := DecodeInversion(a)
	if err != nil {
		return nil, err
	}
	rb, err := DecodeInversion(b)
	if err != nil {
		return nil, err
	}
	merged, err := MergeInversions(ra, rb)
	if err != nil {
		return nil, err
	}
	return EncodeInversion(merged)
}

// MergeTestArtifacts merges two encoded hypothesis-test results through the
// codec.
func MergeTestArtifacts(a, b *types.Artifact) (*types.Artifact, error) {
	ra, err := DecodeTest(a)
	if err != nil {
		return nil, err
	}
	rb, err := DecodeTest(b)
	if err != nil {
		return nil, err
	}
	merged, err := MergeTests(ra, rb)
	if err != nil {
		return nil, err
	}
	return EncodeTest(merged)
}

// MergeInversionChunk folds a chunk of encoded scan results into one
// artifact, pairwise left to right.
func MergeInversionChunk(artifacts []*types.Artifact) (*types.Artifact, error) {
	if len(artifacts) == 0 {
		return nil, errors.New("no scan artifacts to merge")
	}
	acc := artifacts[0]
	for _, a := range artifacts[1:] {
		merged, err := MergeInversionArtifacts(acc, a)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// MergeTestChunk folds a chunk of encoded hypothesis-test results into one
// artifact, pairwise left to right.
func MergeTestChunk(artifacts []*types.Artifact) (*types.Artifact, error) {
	if len(artifacts) == 0 {
		return nil, errors.New("no test artifacts to merge")
	}
	acc := artifacts[0]
	for _, a := range artifacts[1:] {
		merged, err := MergeTestArtifacts(acc, a)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// MergeRecordChunk folds a chunk of dump records into one, pairwise left to
// right, enforcing seed disjointness at every step.
func MergeRecordChunk(records []*types.DumpRecord) (*types.DumpRecord, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to merge")
	}
	acc := records[0]
	for _, r := range records[1:] {
		merged, err := MergeRecords(acc, r)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

func mergeOptional(a, b *types.Artifact, merge func(*types.Artifact, *types.Artifact) (*types.Artifact, error)) (*types.Artifact, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	return merge(a, b)
}

func sameScan(a, b *InversionResult) error {
	switch {
	case a.Workspace != b.Workspace:
		return fmt.Errorf("cannot merge scans of workspaces %q and %q", a.Workspace, b.Workspace)
	case a.POI != b.POI:
		return fmt.Errorf("cannot merge scans of parameters %q and %q", a.POI, b.POI)
	case a.Calculator != b.Calculator:
		return fmt.Errorf("cannot merge %s and %s scans", a.Calculator, b.Calculator)
	case a.Statistic != b.Statistic:
		return fmt.Errorf("cannot merge scans of statistics %q and %q", a.Statistic, b.Statistic)
	case a.CL != b.CL:
		return fmt.Errorf("cannot merge scans at confidence levels %v and %v", a.CL, b.CL)
	}
	return nil
}

func sameTest(a, b *TestResult) error {
	switch {
	case a.Workspace != b.Workspace:
		return fmt.Errorf("cannot merge tests of workspaces %q and %q", a.Workspace, b.Workspace)
	case a.POI != b.POI:
		return fmt.Errorf("cannot merge tests of parameters %q and %q", a.POI, b.POI)
	case a.Calculator != b.Calculator:
		return fmt.Errorf("cannot merge %s and %s tests", a.Calculator, b.Calculator)
	case a.Statistic != b.Statistic:
		return fmt.Errorf("cannot merge tests of statistics %q and %q", a.Statistic, b.Statistic)
	case a.Fit != b.Fit:
		return fmt.Errorf("cannot merge %s and %s tests", a.Fit, b.Fit)
	case a.NullMu != b.NullMu || a.AltMu != b.AltMu:
		return fmt.Errorf("cannot merge tests of different hypotheses")
	case a.ObsStat != b.ObsStat:
		return fmt.Errorf("observed statistic %v does not match %v; the partial results describe different data", a.ObsStat, b.ObsStat)
	}
	return nil
}

func clonePoint(p *ScanPoint) *ScanPoint {
	out := *p
	out.NullStats = append([]float64(nil), p.NullStats...)
	out.AltStats = append([]float64(nil), p.AltStats...)
	return &out
}
