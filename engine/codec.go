package engine

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gunwale-io/bailer/types"
)

// The codec is the only way results cross a process boundary: raw result
// objects never leave the process that built them. A nil result encodes as
// a nil artifact and back, the codec's "no result" value.

// EncodeInversion serializes a scan result into an artifact named after the
// result.
func EncodeInversion(r *InversionResult) (*types.Artifact, error) {
	if r == nil {
		return nil, nil
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode scan result %q: %w", r.Name, err)
	}
	return &types.Artifact{Name: r.Name, Data: data}, nil
}

// DecodeInversion rebuilds a scan result from an artifact. The decoded
// result is fixed up to stand alone once the carrying artifact is released:
// a missing name is rebound from the artifact and the point order is
// restored before anything reads it.
func DecodeInversion(a *types.Artifact) (*InversionResult, error) {
	if a == nil {
		return nil, nil
	}
	var r InversionResult
	if err := msgpack.Unmarshal(a.Data, &r); err != nil {
		return nil, fmt.Errorf("decode scan result %q: %w", a.Name, err)
	}
	if r.Name == "" {
		r.Name = a.Name
	}
	r.normalize()
	return &r, nil
}

// EncodeTest serializes a hypothesis-test result into an artifact named
// after the result.
func EncodeTest(r *TestResult) (*types.Artifact, error) {
	if r == nil {
		return nil, nil
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode test result %q: %w", r.Name, err)
	}
	return &types.Artifact{Name: r.Name, Data: data}, nil
}

// DecodeTest rebuilds a hypothesis-test result from an artifact, rebinding
// a missing name from the artifact that carried it.
func DecodeTest(a *types.Artifact) (*TestResult, error) {
	if a == nil {
		return nil, nil
	}
	var r TestResult
	if err := msgpack.Unmarshal(a.Data, &r); err != nil {
		return nil, fmt.Errorf("decode test result %q: %w", a.Name, err)
	}
	if r.Name == "" {
		r.Name = a.Name
	}
	return &r, nil
}

// EncodeRecord serializes a dump record, artifacts included, to its wire
// form. This is the same encoding the dump file on disk uses.
func EncodeRecord(r *types.DumpRecord) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode dump record: %w", err)
	}
	return data, nil
}

// DecodeRecord reverses EncodeRecord.
func DecodeRecord(data []byte) (*types.DumpRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var r types.DumpRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode dump record: %w", err)
	}
	return &r, nil
}
