package core

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Pipeline wires components A through H end to end (§4.A-§4.H): Byte
// Source, encoding/dialect detection, Tokenizer, Type Inferencer, Kernel,
// Quality Scorer, and Result Aggregator, driven by a single call to Run.
type Pipeline struct {
	cfg      Config
	runID    string
	progress *Progress
	diag     *diagnosticLog

	source *ByteSource
	dec    *ScalarDecoder
	tok    *Tokenizer
	infer  *TypeInferencer
	kernel *Kernel

	pc           ParseContext
	encInfo      EncodingInfo
	header       []string
	haveHeader   bool
	headerSeen   bool
	descsReady   bool
	profileQueue []*Record

	pending []*Record
}

// NewPipeline constructs a Pipeline. totalBytes is the input's known size
// in bytes (0 if unknown, e.g. reading from stdin) and is only used to
// compute Progress.FractionDone.
func NewPipeline(cfg Config, totalBytes int64) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		runID:    newRunID(),
		progress: NewProgress(totalBytes),
		diag:     newDiagnosticLog(cfg.MaxDiagnosticExamples),
	}
}

// Progress returns the pipeline's live progress snapshot source. Safe to
// poll from another goroutine while Run is in flight.
func (p *Pipeline) Progress() *Progress { return p.progress }

// Run drains r to completion (or until ctx is cancelled, or a fatal
// IoError) and returns the finished Report.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Report, error) {
	src, err := NewByteSource(ctx, r, p.cfg)
	if err != nil {
		return p.partialReport(), err
	}
	p.source = src
	src.Start()

	budget, bomLen, encInfo, firstChunks, err := p.buildDetectionBudget(ctx)
	if err != nil {
		return p.partialReport(), err
	}
	p.encInfo = encInfo
	p.dec = NewScalarDecoder(encInfo)

	pc := DetectDialect(budget, p.cfg)
	p.pc = pc
	for _, d := range pc.Diagnostics {
		p.diag.add(d)
	}
	p.tok = NewTokenizer(pc, p.onRecord, p.onDiag)

	// Replay the already-decoded detection-budget prefix through the real
	// tokenizer so no bytes are lost to the detector's private scan.
	if bomLen > 0 && len(firstChunks) > 0 {
		firstChunks[0] = firstChunks[0][bomLen:]
	}
	for _, raw := range firstChunks {
		p.feedChunk(raw)
	}

	for {
		select {
		case <-ctx.Done():
			return p.partialReport(), ctx.Err()
		default:
		}
		raw, err := src.Next()
		if err != nil {
			p.tok.Close()
			p.drainPending()
			return p.partialReport(), err
		}
		if raw == nil {
			break
		}
		p.feedChunk(raw)
		p.progress.update(PhaseStreaming, src.TotalBytes(), p.rowsProcessed(), p.rowsMalformed())
	}
	p.tok.Close()
	p.drainPending()

	if err := src.Wait(); err != nil {
		return p.partialReport(), err
	}

	return p.finish(), nil
}

// Checkpoint writes an lz4-compressed JSON snapshot of the in-flight
// estimator state (§12) so a long-running profile can be resumed-from
// for reporting purposes without waiting for EOS. This captures the same
// derived statistics Finalize would produce, not the raw internal sketch
// bytes — sufficient to recover a point-in-time Report, not to literally
// resume Update calls in a new process.
func (p *Pipeline) Checkpoint(w io.Writer) error {
	if p.kernel == nil {
		return nil
	}
	snap := p.kernel.Snapshot()
	zw := lz4.NewWriter(w)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(snap); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (p *Pipeline) feedChunk(raw []byte) {
	decoded := p.dec.Feed(raw)
	p.tok.Feed(decoded)
	p.drainPending()
}

func (p *Pipeline) onRecord(rec *Record) {
	p.pending = append(p.pending, rec)
}

func (p *Pipeline) onDiag(d Diagnostic) {
	p.diag.add(d)
}

// drainPending processes every record the tokenizer has produced since
// the last drain: the first record may be consumed as the header, records
// after that feed the Type Inferencer until profiling completes, and
// every record thereafter feeds the Kernel directly.
func (p *Pipeline) drainPending() {
	for _, rec := range p.pending {
		p.consumeRecord(rec)
	}
	p.pending = p.pending[:0]
}

func (p *Pipeline) consumeRecord(rec *Record) {
	if !p.headerSeen {
		p.headerSeen = true
		if p.pc.HasHeader {
			p.header = make([]string, rec.NumFields())
			for i := range p.header {
				p.header[i] = rec.Field(i)
			}
			p.tok.SetHeaderColumnCount(rec.NumFields())
			return // header row is not itself a data row
		}
		p.header = make([]string, rec.NumFields())
		for i := range p.header {
			p.header[i] = syntheticColumnName(i)
		}
		p.tok.SetHeaderColumnCount(rec.NumFields())
		// fall through: first row is data when there is no header
	}
	if !p.descsReady {
		if p.infer == nil {
			p.infer = NewTypeInferencer(p.cfg, p.header)
		}
		p.profileQueue = append(p.profileQueue, rec)
		if rec.Malformed {
			return
		}
		if p.infer.Observe(rec) {
			p.finishProfiling()
		}
		return
	}
	p.kernel.Update(rec)
}

// finishProfiling fixes the descriptor set and replays the buffered
// profiling-phase records into a freshly constructed Kernel (§4.F: the
// profiling prefix itself counts toward the streaming statistics).
func (p *Pipeline) finishProfiling() {
	descs := p.infer.Finalize()
	p.kernel = NewKernel(p.cfg, descs, p.diag)
	p.descsReady = true
	for _, rec := range p.profileQueue {
		p.kernel.Update(rec)
	}
	p.profileQueue = nil
}

// buildDetectionBudget reads chunks from the Byte Source until the
// smaller of DetectionBudgetBytes or DetectionBudgetLines is reached (or
// EOS), decoding them for the Dialect Detector while retaining the raw
// chunks so they can be replayed through the real Tokenizer afterward.
func (p *Pipeline) buildDetectionBudget(ctx context.Context) (string, int, EncodingInfo, [][]byte, error) {
	var raws [][]byte
	var firstRaw []byte
	haveFirst := false
	var decodedBudget []byte
	lines := 0

	for {
		select {
		case <-ctx.Done():
			return "", 0, EncodingInfo{}, nil, ctx.Err()
		default:
		}
		raw, err := p.source.Next()
		if err != nil {
			return "", 0, EncodingInfo{}, nil, err
		}
		if raw == nil {
			break
		}
		if !haveFirst {
			firstRaw = raw
			haveFirst = true
		}
		raws = append(raws, raw)
		decodedBudget = append(decodedBudget, raw...)
		lines += countNewlines(raw)
		if len(decodedBudget) >= p.cfg.DetectionBudgetBytes || lines >= p.cfg.DetectionBudgetLines {
			break
		}
	}

	encInfo := DetectEncoding(firstRaw)
	bomLen := encInfo.BOMLen()

	budgetRaw := decodedBudget
	if bomLen > 0 && len(budgetRaw) >= bomLen {
		budgetRaw = budgetRaw[bomLen:]
	}
	tmpDec := NewScalarDecoder(encInfo)
	budgetText := tmpDec.Feed(budgetRaw)

	return budgetText, bomLen, encInfo, raws, nil
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

func (p *Pipeline) rowsProcessed() int64 {
	if p.kernel == nil {
		return 0
	}
	return p.kernel.rowsProcessed
}

func (p *Pipeline) rowsMalformed() int64 {
	if p.kernel == nil {
		return 0
	}
	return p.kernel.rowsMalformed
}

func (p *Pipeline) finish() Report {
	var out KernelOutput
	if p.kernel != nil {
		out = p.kernel.Finalize()
	} else if p.infer != nil {
		// EOF arrived before the profiling prefix completed: finalize the
		// inferencer early so a Report can still be produced (§4.E edge
		// case: fewer than N_PROFILE rows in the whole file).
		descs := p.infer.Finalize()
		p.kernel = NewKernel(p.cfg, descs, p.diag)
		for _, rec := range p.profileQueue {
			p.kernel.Update(rec)
		}
		out = p.kernel.Finalize()
	}
	var totalRead int64
	if p.source != nil {
		totalRead = p.source.TotalBytes()
	}
	p.progress.update(PhaseFinalized, totalRead, out.RowsProcessed, out.RowsMalformed)

	quality := computeQuality(out, p.descriptorsOrEmpty())

	var replacementCount int64
	if p.dec != nil {
		replacementCount = p.dec.ReplacementCount()
	}

	return Report{
		RunID: p.runID,
		Source: SourceReport{
			Encoding: p.encInfo.Tag, EncodingConf: p.encInfo.Confidence,
			BOMPresent: p.encInfo.BOMPresent, ReplacementCount: replacementCount,
			Delimiter: string(p.pc.Delimiter), DelimiterConf: p.pc.DelimiterConf,
			Quote: string(p.pc.Quote), LineTerminator: p.pc.LineTerminator.String(),
			TerminatorConf: p.pc.TerminatorConf, HasHeader: p.pc.HasHeader, HeaderConf: p.pc.HeaderConf,
		},
		Structure: StructureReport{
			ColumnCount: len(out.Columns), RowsProcessed: out.RowsProcessed,
			RowsMalformed: out.RowsMalformed, DuplicateRows: out.DuplicateRows,
		},
		Columns:      out.Columns,
		Pairs:        out.Pairs,
		Multivariate: out.Multivariate,
		Quality:      quality,
		Diagnostics:  p.diag.all(),
	}
}

func (p *Pipeline) descriptorsOrEmpty() []ColumnDescriptor {
	if p.infer == nil {
		return nil
	}
	return p.infer.Finalize()
}

// partialReport assembles a best-effort Report after a fatal error or
// cancellation, with Partial=true so the caller can tell the difference
// (§7: a fatal IoError still yields whatever the kernel had accumulated).
func (p *Pipeline) partialReport() Report {
	rep := p.finish()
	rep.Partial = true
	return rep
}
