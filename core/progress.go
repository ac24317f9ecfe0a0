package core

import (
	"sync/atomic"
	"unsafe"
)

// progressSnapshot holds every sampled value as one struct, atomically
// swapped by whichever goroutine advances the pipeline — the same
// zero-contention read pattern the teacher's background metrics sampler
// uses for its CPU/RPS/connection snapshot.
type progressSnapshot struct {
	phase         Phase
	bytesRead     int64
	rowsProcessed int64
	rowsMalformed int64
	totalBytes    int64 // 0 when unknown (stdin)
}

// Progress publishes a running snapshot of pipeline state for a caller
// polling from another goroutine (e.g. a CLI progress bar), without
// requiring any lock on the hot path.
type Progress struct {
	current unsafe.Pointer // *progressSnapshot
}

// NewProgress returns a Progress with totalBytes set if known up front
// (a regular file's size), or zero for an unsized stream such as stdin.
func NewProgress(totalBytes int64) *Progress {
	p := &Progress{}
	snap := &progressSnapshot{totalBytes: totalBytes}
	atomic.StorePointer(&p.current, unsafe.Pointer(snap))
	return p
}

func (p *Progress) load() *progressSnapshot {
	ptr := atomic.LoadPointer(&p.current)
	if ptr == nil {
		return &progressSnapshot{}
	}
	return (*progressSnapshot)(ptr)
}

// update atomically publishes a new snapshot, carrying forward
// totalBytes since it never changes mid-run.
func (p *Progress) update(phase Phase, bytesRead, rowsProcessed, rowsMalformed int64) {
	prev := p.load()
	snap := &progressSnapshot{
		phase: phase, bytesRead: bytesRead,
		rowsProcessed: rowsProcessed, rowsMalformed: rowsMalformed,
		totalBytes: prev.totalBytes,
	}
	atomic.StorePointer(&p.current, unsafe.Pointer(snap))
}

// Snapshot is the read-only view a caller receives from Progress.Load.
type Snapshot struct {
	Phase         Phase
	BytesRead     int64
	TotalBytes    int64 // 0 means unknown
	RowsProcessed int64
	RowsMalformed int64
	FractionDone  float64 // 0 when TotalBytes is unknown
}

// Load returns the current published snapshot.
func (p *Progress) Load() Snapshot {
	s := p.load()
	frac := 0.0
	if s.totalBytes > 0 {
		frac = float64(s.bytesRead) / float64(s.totalBytes)
		if frac > 1 {
			frac = 1
		}
	}
	return Snapshot{
		Phase: s.phase, BytesRead: s.bytesRead, TotalBytes: s.totalBytes,
		RowsProcessed: s.rowsProcessed, RowsMalformed: s.rowsMalformed,
		FractionDone: frac,
	}
}
