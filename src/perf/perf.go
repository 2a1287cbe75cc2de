package perf

import (
	"context"
	"time"
)

// Tracks the wall-clock cost of one ingestion (or one selection request),
// broken into named blocks. Attach one to the context at the start of a
// pipeline run; the db tracer and the pipeline stages add blocks to it.
type IngestPerf struct {
	Source string // which entry point produced this record
	URI    string
	Start  time.Time
	End    time.Time
	Blocks []Block
}

type Block struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (b *Block) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

func MakeNewIngestPerf(source string, uri string) *IngestPerf {
	return &IngestPerf{
		Source: source,
		URI:    uri,
		Start:  time.Now(),
	}
}

func (p *IngestPerf) EndRun() {
	if p == nil {
		return
	}
	p.End = time.Now()
}

// Handle to an in-progress block. Safe to call on nil, so callers don't have
// to care whether a perf record is attached.
type BlockHandle struct {
	perf *IngestPerf
	idx  int
}

func (p *IngestPerf) StartBlock(category string, description string) *BlockHandle {
	if p == nil {
		return nil
	}
	p.Blocks = append(p.Blocks, Block{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
	return &BlockHandle{perf: p, idx: len(p.Blocks) - 1}
}

func (b *BlockHandle) End() {
	if b == nil {
		return
	}
	b.perf.Blocks[b.idx].End = time.Now()
}

type perfContextKey struct{}

func AttachPerf(ctx context.Context, p *IngestPerf) context.Context {
	return context.WithValue(ctx, perfContextKey{}, p)
}

// Returns nil if the context carries no perf record; all methods tolerate
// a nil receiver.
func ExtractPerf(ctx context.Context) *IngestPerf {
	p, _ := ctx.Value(perfContextKey{}).(*IngestPerf)
	return p
}
