package util

import (
	"context"
	"strings"

	"github.com/ValentinKolb/kvkit/lib/common"
	"github.com/ValentinKolb/kvkit/lib/loader"
	"github.com/ValentinKolb/kvkit/lib/registry"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/store/metricstore"
	"github.com/ValentinKolb/kvkit/lib/stream"
	"github.com/ValentinKolb/kvkit/lib/trigger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// The command line tools work on text keys and values.
type (
	Store  = store.Store[string, string]
	Loader = loader.Loader[string, string]
)

// prober is implemented by FileSource and ObjectSource
type prober interface {
	Version(ctx context.Context) (string, bool, error)
}

// BuildStore creates the configured store, instrumented under name
func BuildStore(ctx context.Context, conf *common.Config, name string) (Store, error) {
	s, err := registry.NewStores[string, string]().Build(ctx, conf.Store)
	if err != nil {
		return nil, err
	}
	return metricstore.New[string, string](s, name, nil), nil
}

// BuildSource creates the configured bulk source
func BuildSource(conf *common.Config) (stream.Source, error) {
	src := conf.Loader.Source
	switch strings.ToLower(src.Type) {
	case "object":
		client, err := minio.New(src.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(src.AccessKey, src.SecretKey, ""),
			Secure: src.Secure,
			Region: src.Region,
		})
		if err != nil {
			return nil, store.WrapError(store.CodeIO, err, "object store client")
		}
		return stream.ObjectSource{Client: client, Bucket: src.Bucket, Object: src.Object}, nil
	default:
		if src.Path == "" {
			return nil, store.NewError(store.CodeOther, "no source configured, set loader.source.path or --source")
		}
		return stream.FileSource{Path: src.Path}, nil
	}
}

// BuildStream creates the record stream over source
func BuildStream(ctx context.Context, conf *common.Config, source stream.Source) (*stream.RecordStream[string, string], error) {
	p, err := registry.NewParsers[string, string]().Build(ctx, conf.Loader.Parser)
	if err != nil {
		return nil, err
	}
	framer := stream.FrameLines(conf.Loader.BufferMinSize, conf.Loader.BufferMaxSize)
	if strings.EqualFold(conf.Loader.Format, "bson") {
		framer = stream.FrameBSON(conf.Loader.BufferMinSize, conf.Loader.BufferMaxSize)
	}
	return stream.NewRecordStream[string, string](source, p, &stream.Options{
		Framer:        framer,
		SkipDirtyRows: conf.Loader.SkipDirtyRows,
	}), nil
}

// BuildTrigger creates the configured trigger, nil for type none
func BuildTrigger(conf *common.Config, source stream.Source) (trigger.Trigger, error) {
	switch strings.ToLower(conf.Trigger.Type) {
	case "file":
		fs, ok := source.(stream.FileSource)
		if !ok {
			return nil, store.Errorf(store.CodeOther, "file trigger needs a file source, got %s", source)
		}
		return trigger.NewFileTrigger(fs.Path, &trigger.FileOptions{Debounce: conf.Trigger.Debounce}), nil
	case "poll":
		p, ok := source.(prober)
		if !ok {
			return nil, store.Errorf(store.CodeOther, "source %s can not be polled", source)
		}
		return trigger.NewPollTrigger(source.String(), p.Version, &trigger.PollOptions{Interval: conf.Trigger.Interval}), nil
	default:
		return nil, nil
	}
}

// BuildLoader wires store, stream and trigger. withTrigger false builds a one-shot loader.
func BuildLoader(ctx context.Context, conf *common.Config, withTrigger bool) (*Loader, *stream.RecordStream[string, string], error) {
	source, err := BuildSource(conf)
	if err != nil {
		return nil, nil, err
	}
	records, err := BuildStream(ctx, conf, source)
	if err != nil {
		return nil, nil, err
	}
	strategy, err := loader.ParseStrategy(conf.Loader.Strategy)
	if err != nil {
		return nil, nil, err
	}
	// a second RedisStore shares the keyspace of the active one, there is nothing to swap
	if strategy == loader.Replace && strings.EqualFold(conf.Store.Type, registry.RedisStore) {
		return nil, nil, store.Errorf(store.CodeOther, "strategy %s is not supported with %s, use %s", loader.Replace, registry.RedisStore, loader.Inplace)
	}

	target, err := BuildStore(ctx, conf, "active")
	if err != nil {
		return nil, nil, err
	}

	opts := &loader.Options[string, string]{
		Strategy:    strategy,
		LoadOnStart: conf.Loader.LoadOnStart,
	}
	if strategy == loader.Replace {
		opts.NewStore = func() (Store, error) {
			return BuildStore(ctx, conf, "active")
		}
	}
	if withTrigger {
		trig, err := BuildTrigger(conf, source)
		if err != nil {
			_ = target.Close()
			return nil, nil, err
		}
		if trig != nil {
			opts.Trigger = trig
		}
	}

	l, err := loader.New[string, string](target, records, opts)
	if err != nil {
		_ = target.Close()
		return nil, nil, err
	}
	return l, records, nil
}
