package stream

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/ValentinKolb/kvkit/lib/store"
)

const (
	DefaultBufferMinSize = 64 * 1024       // 64KB
	DefaultBufferMaxSize = 4 * 1024 * 1024 // 4MB
)

// Scanner yields one raw record per Scan. *bufio.Scanner implements it.
type Scanner interface {
	Scan() bool
	Bytes() []byte
	Err() error
}

// Framer cuts a byte stream into records.
type Framer func(r io.Reader) Scanner

// FrameLines splits on '\n' (a trailing '\r' is dropped). A single line may grow
// the buffer from minSize up to maxSize, longer lines fail the iteration.
func FrameLines(minSize, maxSize int) Framer {
	minSize, maxSize = bufferSizes(minSize, maxSize)
	return func(r io.Reader) Scanner {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, minSize), maxSize)
		return sc
	}
}

// FrameBSON reads concatenated BSON documents, each prefixed by its own
// little-endian int32 length (the mongodump format).
func FrameBSON(minSize, maxSize int) Framer {
	minSize, maxSize = bufferSizes(minSize, maxSize)
	return func(r io.Reader) Scanner {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, minSize), maxSize)
		sc.Split(splitBSON)
		return sc
	}
}

// minimal document: length prefix plus terminating zero
const minBSONDocument = 5

func splitBSON(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 && atEOF {
		return 0, nil, nil
	}
	if len(data) < 4 {
		if atEOF {
			return 0, nil, store.NewError(store.CodeIO, "truncated BSON length prefix")
		}
		return 0, nil, nil
	}
	size := int(int32(binary.LittleEndian.Uint32(data)))
	if size < minBSONDocument {
		return 0, nil, store.Errorf(store.CodeIO, "invalid BSON document length %d", size)
	}
	if len(data) < size {
		if atEOF {
			return 0, nil, store.Errorf(store.CodeIO, "truncated BSON document, want %d bytes, have %d", size, len(data))
		}
		return 0, nil, nil
	}
	return size, data[:size], nil
}

func bufferSizes(minSize, maxSize int) (int, int) {
	if minSize <= 0 {
		minSize = DefaultBufferMinSize
	}
	if maxSize <= 0 {
		maxSize = DefaultBufferMaxSize
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return minSize, maxSize
}
