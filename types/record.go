package types

import "sort"

// DumpRecord pairs the seeds that produced a set of results with the merged
// invert-kind and test-kind artifacts. Seeds map to a provenance label (the
// dump file a record was loaded from, or the run id for freshly computed
// results) so that a collision can name both origins.
type DumpRecord struct {
	// Seeds maps each contributing base seed to its provenance label.
	Seeds map[uint32]string `json:"seeds" msgpack:"seeds"`
	// Invert is the merged scan result, nil when the record has none.
	Invert *Artifact `json:"invert,omitempty" msgpack:"invert,omitempty"`
	// Test is the merged hypothesis-test result, nil when the record has none.
	Test *Artifact `json:"test,omitempty" msgpack:"test,omitempty"`
}

// NewDumpRecord builds a record for a single base seed.
func NewDumpRecord(seed uint32, origin string, invert, test *Artifact) *DumpRecord {
	return &DumpRecord{
		Seeds:  map[uint32]string{seed: origin},
		Invert: invert,
		Test:   test,
	}
}

// SeedList returns the record's seeds in ascending order.
func (r *DumpRecord) SeedList() []uint32 {
	seeds := make([]uint32, 0, len(r.Seeds))
	for s := range r.Seeds {
		seeds = append(seeds, s)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	return seeds
}

// CombineSeeds unions the seed maps of two records. A seed present in both
// is a hard error: it means the same random stream was counted twice and
// the merged statistics would be silently corrupted.
func CombineSeeds(a, b map[uint32]string) (map[uint32]string, error) {
	out := make(map[uint32]string, len(a)+len(b))
	for s, origin := range a {
		out[s] = origin
	}
	for s, origin := range b {
		if prev, ok := out[s]; ok {
			return nil, &CollisionError{Seed: s, First: prev, Second: origin}
		}
		out[s] = origin
	}
	return out, nil
}
