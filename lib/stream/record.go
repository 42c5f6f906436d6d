package stream

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/kvkit/lib/parser"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var log = logger.GetLogger("stream")

// Options configures a RecordStream
type Options struct {
	Framer        Framer // record framing (default FrameLines with default buffer sizes)
	SkipDirtyRows bool   // deliver parser failures as Unknown records instead of aborting
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Framer:        FrameLines(DefaultBufferMinSize, DefaultBufferMaxSize),
		SkipDirtyRows: true,
	}
}

// Stats are cumulative over all iterations of a RecordStream
type Stats struct {
	Records    int64 `json:"records"`
	DirtyRows  int64 `json:"dirty_rows"`
	AvgSize    int   `json:"avg_size"`
	P99Size    int   `json:"p99_size"`
	Iterations int64 `json:"iterations"`
}

// RecordStream parses the records of a Source.
type RecordStream[K comparable, V any] struct {
	source        Source
	parser        parser.Parser[K, V]
	framer        Framer
	skipDirtyRows bool

	sizes      *util.SizeHistogram
	dirty      atomic.Int64
	iterations atomic.Int64
}

// NewRecordStream creates a stream over source (opts may be nil).
func NewRecordStream[K comparable, V any](source Source, p parser.Parser[K, V], opts *Options) *RecordStream[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	framer := opts.Framer
	if framer == nil {
		framer = FrameLines(DefaultBufferMinSize, DefaultBufferMaxSize)
	}
	return &RecordStream[K, V]{
		source:        source,
		parser:        p,
		framer:        framer,
		skipDirtyRows: opts.SkipDirtyRows,
		sizes:         util.NewSizeHistogram(),
	}
}

// Each opens the source and visits every record. Empty records are ignored.
func (s *RecordStream[K, V]) Each(ctx context.Context, fn Visitor[K, V]) error {
	r, err := s.source.Open(ctx)
	if err != nil {
		return err
	}
	defer r.Close()
	s.iterations.Add(1)

	var row, dirty int
	sc := s.framer(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		s.sizes.AddSample(len(raw))

		rec, err := s.parser.Parse(raw)
		if err != nil {
			dirty++
			s.dirty.Add(1)
			if !s.skipDirtyRows {
				return store.WrapError(store.CodeParser, err, "")
			}
			log.Warningf("%s: skipping dirty row %d: %v", s.source, row, err)
			rec = parser.Record[K, V]{Type: parser.ChangeUnknown}
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return store.WrapError(store.CodeIO, errors.Wrapf(err, "read %s at row %d", s.source, row+1), "read source")
	}

	if dirty > 0 {
		log.Debugf("%s: %d rows, %d dirty", s.source, row, dirty)
	}
	return nil
}

// Stats returns cumulative counters.
func (s *RecordStream[K, V]) Stats() Stats {
	return Stats{
		Records:    s.sizes.Count(),
		DirtyRows:  s.dirty.Load(),
		AvgSize:    s.sizes.Average(),
		P99Size:    s.sizes.Percentile(99),
		Iterations: s.iterations.Load(),
	}
}

func (s *RecordStream[K, V]) String() string {
	return s.source.String()
}
