// Package reader provides the read-side data access layer for the bailer
// CLI: it opens dump files and journal datasets and turns them into the
// view payloads the renderer and the TUI share.
package reader

// DumpView is the deep view of one dump file.
type DumpView struct {
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Seeds     []uint32 `json:"seeds"`
	// InvertBytes and TestBytes are the encoded artifact sizes; zero means
	// the dump carries no artifact of that kind.
	InvertBytes int64     `json:"invert_bytes"`
	TestBytes   int64     `json:"test_bytes"`
	Scan        *ScanView `json:"scan,omitempty"`
	Test        *TestView `json:"test,omitempty"`
}

// ScanView summarizes the inversion artifact inside a dump.
type ScanView struct {
	Workspace  string      `json:"workspace"`
	POI        string      `json:"poi"`
	Calculator string      `json:"calculator"`
	Statistic  string      `json:"statistic"`
	CL         float64     `json:"cl"`
	Points     []PointView `json:"points"`
}

// PointView is one scan point with its derived p-values.
type PointView struct {
	X           float64 `json:"x"`
	Toys        int     `json:"toys"`
	CLs         float64 `json:"cls"`
	CLsb        float64 `json:"clsb"`
	CLb         float64 `json:"clb"`
	ExpectedCLs float64 `json:"expected_cls"`
}

// TestView summarizes the hypothesis-test artifact inside a dump.
type TestView struct {
	Toys         int     `json:"toys"`
	NullPValue   float64 `json:"null_p_value"`
	AltPValue    float64 `json:"alt_p_value"`
	Significance float64 `json:"significance"`
}
