// Package seed derives the reproducible 32-bit seeds that drive each unit
// of work. The 32-bit space is split in half: the high 16 bits come from the
// user's base seed, mixed so numerically close base seeds land far apart;
// the low 16 bits hold a per-task counter starting at 1, so a derived seed
// is never the degenerate value 0. For a fixed base seed, distinct task
// indexes never collide until the counter wraps the full 32-bit word.
package seed

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"time"
)

// mixer is an odd constant multiplied into the base seed before truncation.
// It decorrelates base seeds that differ by small deltas, so two analysts
// picking adjacent seeds still get distant high halves.
const mixer = 0x9e37

// MaxBase is the exclusive upper bound of the base seed space.
const MaxBase = 1 << 16

// autoTag salts the auto-derived seed hash.
const autoTag = 0xD1CE

// maxIndex bounds the task index; far more tasks than any run submits, and
// low enough that the low-half counter can never wrap the word back to 0.
const maxIndex = 1 << 31

// Derive returns the seed for the index-th unit of work under base.
// Identical arguments always yield the identical seed; distinct indexes
// yield distinct seeds. Fails if base is outside [0, MaxBase) or index is
// negative.
func Derive(base, index int) (uint32, error) {
	if base < 0 || base >= MaxBase {
		return 0, fmt.Errorf("base seed %d outside [0, %d)", base, MaxBase)
	}
	if index < 0 || index >= maxIndex {
		return 0, fmt.Errorf("task index %d outside [0, %d)", index, maxIndex)
	}
	high := uint32(base*mixer) & 0xffff
	return high<<16 + 1 + uint32(index), nil
}

// Auto derives a base seed from the process id and wall clock for runs that
// did not pin one. The result is in [0, MaxBase) and is logged by the caller
// so the run stays reproducible after the fact.
func Auto() int {
	h := fnv.New64a()
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:], autoTag)
	binary.BigEndian.PutUint64(buf[8:], uint64(os.Getpid()))
	binary.BigEndian.PutUint64(buf[16:], uint64(time.Now().UnixNano()))
	h.Write(buf[:])

	v := h.Sum64()
	v ^= v >> 32
	v ^= v >> 16
	return int(v & 0xffff)
}
