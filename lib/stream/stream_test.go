package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvkit/lib/parser"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/juju/mgo/v3/bson"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec = parser.Record[string, string]

func collect[K comparable, V any](t *testing.T, s Stream[K, V]) []parser.Record[K, V] {
	t.Helper()
	var out []parser.Record[K, V]
	require.NoError(t, s.Each(t.Context(), func(r parser.Record[K, V]) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func lineStream(src Source, skipDirty bool) *RecordStream[string, string] {
	return NewRecordStream[string, string](src, parser.NewLineParser[string, string](nil), &Options{SkipDirtyRows: skipDirty})
}

// --------------------------------------------------------------------------
// Record streams
// --------------------------------------------------------------------------

func TestRecordStreamFile(t *testing.T) {
	path := writeFile(t, "user:1\tAlice\nuser:2\tBob\r\n\nuser:1\t\t3\n")
	s := lineStream(FileSource{Path: path}, true)

	assert.Equal(t, []rec{
		{Type: parser.ChangeAdd, Key: "user:1", Value: "Alice"},
		{Type: parser.ChangeAdd, Key: "user:2", Value: "Bob"},
		{Type: parser.ChangeDelete, Key: "user:1", Value: ""},
	}, collect[string, string](t, s))

	// restartable
	assert.Len(t, collect[string, string](t, s), 3)
	assert.Equal(t, int64(2), s.Stats().Iterations)
	assert.Equal(t, int64(6), s.Stats().Records)
	assert.Equal(t, "file://"+path, s.String())
}

func TestRecordStreamDirtyRows(t *testing.T) {
	src := ReaderSource("a\t1\nb\tnope\nc\t3\n")
	p := parser.NewLineParser[string, int](nil)

	skipping := NewRecordStream[string, int](src, p, nil)
	records := collect[string, int](t, skipping)
	require.Len(t, records, 3)
	assert.Equal(t, parser.Record[string, int]{Type: parser.ChangeAdd, Key: "a", Value: 1}, records[0])
	assert.Equal(t, parser.Record[string, int]{Type: parser.ChangeUnknown}, records[1])
	assert.Equal(t, parser.Record[string, int]{Type: parser.ChangeAdd, Key: "c", Value: 3}, records[2])
	assert.Equal(t, int64(1), skipping.Stats().DirtyRows)

	strict := NewRecordStream[string, int](src, p, &Options{SkipDirtyRows: false})
	var seen int
	err := strict.Each(t.Context(), func(parser.Record[string, int]) error {
		seen++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, store.CodeParser, store.CodeOf(err))
	assert.Equal(t, 1, seen)
}

func TestRecordStreamVisitorErrorStops(t *testing.T) {
	s := lineStream(ReaderSource("a\t1\nb\t2\nc\t3\n"), true)
	stop := errors.New("stop")

	var seen []string
	err := s.Each(t.Context(), func(r rec) error {
		seen = append(seen, r.Key)
		if r.Key == "b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRecordStreamContextCancel(t *testing.T) {
	s := lineStream(ReaderSource("a\t1\nb\t2\n"), true)
	ctx, cancel := context.WithCancel(t.Context())

	err := s.Each(ctx, func(rec) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordStreamMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	s := lineStream(FileSource{Path: path}, true)
	err := s.Each(t.Context(), func(rec) error { return nil })
	require.Error(t, err)
	assert.Equal(t, store.CodeIO, store.CodeOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, strings.Count(err.Error(), path), "path mentioned once: %v", err)
}

func TestRecordStreamLineTooLong(t *testing.T) {
	long := strings.Repeat("x", 256)
	s := NewRecordStream[string, string](
		ReaderSource("a\tb\nk\t"+long+"\n"),
		parser.NewLineParser[string, string](nil),
		&Options{Framer: FrameLines(16, 64), SkipDirtyRows: true},
	)
	var seen int
	err := s.Each(t.Context(), func(rec) error {
		seen++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, store.CodeIO, store.CodeOf(err))
	assert.Equal(t, 1, seen)
}

func TestRecordStreamBSON(t *testing.T) {
	var payload []byte
	for i := range 3 {
		doc, err := bson.Marshal(bson.M{"id": fmt.Sprintf("u%d", i), "name": fmt.Sprintf("user %d", i)})
		require.NoError(t, err)
		payload = append(payload, doc...)
	}

	type user struct {
		Name string `bson:"name"`
	}
	s := NewRecordStream[string, user](
		ReaderSource(payload),
		parser.NewBSONParser[string, user](nil),
		&Options{Framer: FrameBSON(0, 0)},
	)
	records := collect[string, user](t, s)
	require.Len(t, records, 3)
	assert.Equal(t, "u2", records[2].Key)
	assert.Equal(t, "user 2", records[2].Value.Name)

	truncated := NewRecordStream[string, user](
		ReaderSource(payload[:len(payload)-3]),
		parser.NewBSONParser[string, user](nil),
		&Options{Framer: FrameBSON(0, 0)},
	)
	err := truncated.Each(t.Context(), func(parser.Record[string, user]) error { return nil })
	require.Error(t, err)
	assert.Equal(t, store.CodeIO, store.CodeOf(err))
}

func TestInMemoryStreams(t *testing.T) {
	assert.Empty(t, collect[string, string](t, EmptyStream[string, string]{}))

	records := SliceStream[string, string]{
		{Type: parser.ChangeAdd, Key: "a", Value: "1"},
		{Type: parser.ChangeDelete, Key: "a"},
	}
	assert.Equal(t, []rec(records), collect[string, string](t, records))
}

func TestFileSourceVersion(t *testing.T) {
	path := writeFile(t, "a\t1\n")
	src := FileSource{Path: path}

	v1, exists, err := src.Version(t.Context())
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, os.WriteFile(path, []byte("a\t1\nb\t2\n"), 0o644))
	v2, exists, err := src.Version(t.Context())
	require.NoError(t, err)
	require.True(t, exists)
	assert.NotEqual(t, v1, v2)

	require.NoError(t, os.Remove(path))
	_, exists, err = src.Version(t.Context())
	require.NoError(t, err)
	assert.False(t, exists)
}

// --------------------------------------------------------------------------
// Object source against a minimal S3 endpoint
// --------------------------------------------------------------------------

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) put(name, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = content
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	content, ok := f.objects[strings.TrimPrefix(r.URL.Path, "/")]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			_, _ = fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
		}
		return
	}

	w.Header().Set("ETag", fmt.Sprintf(`"%x"`, len(content)*31+int(content[0])))
	w.Header().Set("Last-Modified", time.Unix(0, 0).UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", fmt.Sprint(len(content)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = fmt.Fprint(w, content)
	}
}

func newObjectSource(t *testing.T, fake *fakeS3) ObjectSource {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return ObjectSource{Client: client, Bucket: "data", Object: "users.tsv"}
}

func TestObjectSource(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"data/users.tsv": "user:1\tAlice\nuser:2\tBob\n"}}
	src := newObjectSource(t, fake)

	s := lineStream(src, true)
	assert.Equal(t, []rec{
		{Type: parser.ChangeAdd, Key: "user:1", Value: "Alice"},
		{Type: parser.ChangeAdd, Key: "user:2", Value: "Bob"},
	}, collect[string, string](t, s))
	assert.Equal(t, "s3://data/users.tsv", src.String())

	v1, exists, err := src.Version(t.Context())
	require.NoError(t, err)
	require.True(t, exists)
	require.NotEmpty(t, v1)

	fake.put("data/users.tsv", "user:3\tCarol\n")
	v2, _, err := src.Version(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestObjectSourceMissing(t *testing.T) {
	src := newObjectSource(t, &fakeS3{objects: map[string]string{}})

	_, exists, err := src.Version(t.Context())
	require.NoError(t, err)
	assert.False(t, exists)

	err = lineStream(src, true).Each(t.Context(), func(rec) error { return nil })
	require.Error(t, err)
	assert.Equal(t, store.CodeIO, store.CodeOf(err))
}
