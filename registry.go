package typecodec

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Closure walks the dependency graph below roots and returns every reachable
// serializer exactly once, dependencies before dependents. Cycles are
// visited once. Two distinct serializers sharing a name fail with
// ErrDuplicateSerializer.
func Closure(roots ...Serializer) ([]Serializer, error) {
	var (
		order []Serializer
		seen  = make(map[string]Serializer)
	)
	var visit func(s Serializer) error
	visit = func(s Serializer) error {
		if s == nil {
			return nil
		}
		name := s.Name()
		if prev, ok := seen[name]; ok {
			if prev != s {
				return errors.Wrapf(ErrDuplicateSerializer, "type %s", name)
			}
			return nil
		}
		seen[name] = s
		for _, dep := range s.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		order = append(order, s)
		return nil
	}
	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// checkDependencies verifies that s depends on exactly the types its schema
// references. Extra dependencies are only allowed when the schema has a
// dynamically typed object field.
func checkDependencies(s Serializer) error {
	deps := lo.Map(s.Dependencies(), func(d Serializer, _ int) string { return d.Name() })
	missing, extra := lo.Difference(s.Schema().ReferencedTypes(), deps)
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingSerializer, "type %s references %s but does not depend on it", s.Name(), missing[0])
	}
	if len(extra) > 0 && !lo.ContainsBy(s.Schema().Fields(), isDynamicObject) {
		return errors.Wrapf(ErrUnexpectedDependency, "type %s depends on %s but no field references it", s.Name(), extra[0])
	}
	return nil
}

func isDynamicObject(f Field) bool { return f.Type == FieldObject && f.TypeName == "" }

// Registry is a composition root: it owns the name → serializer table of an
// object model and binds every registered serializer to one framework.
//
// Lookups are lock-free and safe from concurrent decodes. Register
// calls are serialised.
type Registry struct {
	fw     Framework
	log    *zap.Logger
	byName *xsync.Map[string, Serializer]

	mu    sync.Mutex
	order []Serializer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry. A nil fw leaves framework
// attachment to the caller.
func NewRegistry(fw Framework, opts ...RegistryOption) *Registry {
	r := &Registry{
		fw:     fw,
		log:    zap.NewNop(),
		byName: xsync.NewMap[string, Serializer](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Framework returns the framework bound to registered serializers.
func (r *Registry) Framework() Framework { return r.fw }

// Register adds roots and everything they transitively depend on.
// Registration is all-or-nothing: on error nothing is added or attached.
func (r *Registry) Register(roots ...Serializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, err := Closure(roots...)
	if err != nil {
		r.log.Warn("rejected serializer registration", zap.Error(err))
		return err
	}

	fresh := make([]Serializer, 0, len(batch))
	for _, s := range batch {
		if prev, ok := r.byName.Load(s.Name()); ok {
			if prev != s {
				err := errors.Wrapf(ErrDuplicateSerializer, "type %s", s.Name())
				r.log.Warn("rejected serializer registration", zap.String("type", s.Name()), zap.Error(err))
				return err
			}
			continue
		}
		fresh = append(fresh, s)
	}

	for _, s := range fresh {
		if err := checkDependencies(s); err != nil {
			r.log.Warn("rejected serializer registration", zap.String("type", s.Name()), zap.Error(err))
			return err
		}
		if r.fw != nil && s.Framework() != nil && !sameFramework(s.Framework(), r.fw) {
			err := errors.Wrapf(ErrFrameworkReplaced, "serializer %s", s.Name())
			r.log.Warn("rejected serializer registration", zap.String("type", s.Name()), zap.Error(err))
			return err
		}
	}

	for _, s := range fresh {
		if r.fw != nil {
			if err := s.AttachFramework(r.fw); err != nil {
				return err
			}
		}
		r.byName.Store(s.Name(), s)
		r.order = append(r.order, s)
		r.log.Debug("registered serializer",
			zap.String("type", s.Name()),
			zap.Int("fields", s.Schema().NumFields()),
			zap.Int("dependencies", len(s.Dependencies())),
		)
	}
	r.log.Info("serializers registered", zap.Int("added", len(fresh)), zap.Int("total", r.byName.Size()))
	return nil
}

// Lookup returns the serializer registered under name.
func (r *Registry) Lookup(name string) (Serializer, bool) {
	return r.byName.Load(name)
}

// Resolve is like Lookup but reports a missing type as ErrMissingSerializer.
func (r *Registry) Resolve(name string) (Serializer, error) {
	s, ok := r.byName.Load(name)
	if !ok {
		return nil, errors.Wrapf(ErrMissingSerializer, "type %s", name)
	}
	return s, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.byName.Size())
	r.byName.Range(func(name string, _ Serializer) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Serializers returns every registered serializer, dependencies first.
func (r *Registry) Serializers() []Serializer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

func (r *Registry) Len() int { return r.byName.Size() }
