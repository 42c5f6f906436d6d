package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// Source opens the raw byte stream behind a RecordStream. Open is called once
// per iteration and the caller closes the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// --------------------------------------------------------------------------
// File
// --------------------------------------------------------------------------

// FileSource reads a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, store.WrapError(store.CodeIO, errors.WithStack(err), "open source")
	}
	return f, nil
}

// Version returns the size and modification time of the file. A missing file is
// reported with exists == false and no error.
func (s FileSource) Version(_ context.Context) (string, bool, error) {
	info, err := os.Stat(s.Path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.WrapError(store.CodeIO, errors.WithStack(err), "probe source")
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), true, nil
}

func (s FileSource) String() string {
	return "file://" + s.Path
}

// --------------------------------------------------------------------------
// Object storage
// --------------------------------------------------------------------------

// ObjectClient is the subset of *minio.Client used by ObjectSource.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// ObjectSource reads one object from an S3 compatible object store.
type ObjectSource struct {
	Client ObjectClient
	Bucket string
	Object string
}

func (s ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, s.Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, store.WrapError(store.CodeIO, errors.Wrapf(err, "get %s", s), "open source")
	}
	// GetObject is lazy, Stat surfaces a missing object before the first read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, store.WrapError(store.CodeIO, errors.Wrapf(err, "get %s", s), "open source")
	}
	return obj, nil
}

// Version returns the ETag of the object. A missing object is reported with
// exists == false and no error.
func (s ObjectSource) Version(ctx context.Context) (string, bool, error) {
	info, err := s.Client.StatObject(ctx, s.Bucket, s.Object, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, store.WrapError(store.CodeIO, errors.Wrapf(err, "stat %s", s), "probe source")
	}
	return info.ETag, true, nil
}

func (s ObjectSource) String() string {
	return "s3://" + s.Bucket + "/" + s.Object
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// ReaderSource serves a fixed payload.
type ReaderSource []byte

func (s ReaderSource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s)), nil
}

func (s ReaderSource) String() string {
	return fmt.Sprintf("memory://%dB", len(s))
}
