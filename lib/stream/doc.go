/*
Package stream turns bulk sources into lazy, restartable sequences of parsed
change records.

A Stream is consumed with Each, which visits every record in source order and stops
at the end of the source, on the first I/O error, on the first visitor error or when
the context is cancelled. Every call to Each opens the source again, so the same
stream can be replayed on each reload.

Building blocks:

  - Source: opens the raw bytes. FileSource reads a local file, ObjectSource reads an
    object from any S3 compatible store through minio-go, ReaderSource wraps an
    in-memory payload.
  - Framer: cuts the byte stream into records. FrameLines splits on newlines with a
    bounded buffer, FrameBSON reads length-prefixed BSON documents.
  - RecordStream: Source + Framer + parser.Parser. Records the parser rejects are
    "dirty". With SkipDirtyRows they are logged, counted and delivered as Unknown
    records, otherwise they abort the iteration with a Parser error.

EmptyStream and SliceStream need no source. EmptyStream is what the loader hands to
listeners for notifications that carry no data.

Both FileSource and ObjectSource expose Version, a cheap probe that changes whenever
the content changes. It feeds the polling trigger.
*/
package stream
