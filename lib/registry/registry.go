package registry

import (
	"context"
	"sort"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/go-viper/mapstructure/v2"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("registry")

// TypeOptions selects a component and configures it.
type TypeOptions struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// Constructor builds a component from its raw options.
type Constructor[T any] func(ctx context.Context, options map[string]any) (T, error)

// Registry maps type names to constructors.
type Registry[T any] struct {
	kind    string
	entries *xsync.MapOf[string, Constructor[T]]
}

// New creates an empty registry. kind names the component family in errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: xsync.NewMapOf[string, Constructor[T]](),
	}
}

// Register adds or replaces a constructor.
func (r *Registry[T]) Register(name string, c Constructor[T]) {
	r.entries.Store(name, c)
}

// Build constructs the component named by opts.Type.
func (r *Registry[T]) Build(ctx context.Context, opts TypeOptions) (T, error) {
	var zero T
	c, ok := r.entries.Load(opts.Type)
	if !ok {
		return zero, store.Errorf(store.CodeOther, "unknown %s type %q (known: %v)", r.kind, opts.Type, r.Names())
	}
	log.Debugf("building %s %s", r.kind, opts.Type)
	v, err := c(ctx, opts.Options)
	if err != nil {
		return zero, store.WrapError(store.CodeOther, err, "build "+r.kind+" "+opts.Type)
	}
	return v, nil
}

// Names returns the registered type names in order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, r.entries.Size())
	r.entries.Range(func(name string, _ Constructor[T]) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Decode copies an option map into out, which must be a pointer to a struct with
// mapstructure tags. Unknown keys are an error.
func Decode(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return store.WrapError(store.CodeOther, err, "options decoder")
	}
	if err := dec.Decode(input); err != nil {
		return store.WrapError(store.CodeOther, err, "decode options")
	}
	return nil
}

// decodeInto is Decode for constructors: it starts from the defaults
func decodeInto[O any](input map[string]any, defaults *O) (*O, error) {
	if err := Decode(input, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}
