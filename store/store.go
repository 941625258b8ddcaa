// Package store persists dump records: the (seeds, invert artifact, test
// artifact) tuple a run leaves behind so a later invocation can pick the
// partial results up and merge more trials in.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gunwale-io/bailer/types"
)

// Suffix is appended to the output prefix to name a dump file.
const Suffix = "_dump.msgpack"

// formatVersion identifies the current on-disk layout.
const formatVersion = 2

// PathFor returns the dump file path for an output prefix.
func PathFor(prefix string) string {
	return prefix + Suffix
}

// dumpFile is the on-disk layout. Version 1 files carried a single Seed;
// version 2 carries the seed list a merged record accumulates. Load accepts
// both, Save always writes version 2.
type dumpFile struct {
	Version int             `msgpack:"version"`
	Seed    uint32          `msgpack:"seed,omitempty"`
	Seeds   []uint32        `msgpack:"seeds,omitempty"`
	Invert  *types.Artifact `msgpack:"invert,omitempty"`
	Test    *types.Artifact `msgpack:"test,omitempty"`
}

// Save writes a dump record. The write goes through a temporary file in the
// same directory and a rename, so a crash never leaves a half-written dump
// behind a valid name.
func Save(path string, record *types.DumpRecord) error {
	if record == nil {
		return fmt.Errorf("nothing to save to %s", path)
	}
	file := dumpFile{
		Version: formatVersion,
		Seeds:   record.SeedList(),
		Invert:  record.Invert,
		Test:    record.Test,
	}
	data, err := msgpack.Marshal(&file)
	if err != nil {
		return fmt.Errorf("encode dump %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dump-*")
	if err != nil {
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	return nil
}

// Load reads a dump record back. Every seed's provenance is rebound to the
// file path, so a collision during a later merge can name the offending
// dump. A file whose own seed list repeats a value is rejected outright.
func Load(path string) (*types.DumpRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump %s: %w", path, err)
	}
	var file dumpFile
	if err := msgpack.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w", path, err)
	}

	seeds := file.Seeds
	if len(seeds) == 0 && file.Seed != 0 {
		// Version 1 layout.
		seeds = []uint32{file.Seed}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("dump %s carries no seeds", path)
	}

	seedMap := make(map[uint32]string, len(seeds))
	for _, s := range seeds {
		if _, ok := seedMap[s]; ok {
			return nil, &types.CollisionError{Seed: s, First: path, Second: path}
		}
		seedMap[s] = path
	}

	return &types.DumpRecord{
		Seeds:  seedMap,
		Invert: file.Invert,
		Test:   file.Test,
	}, nil
}
