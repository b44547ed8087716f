package typecodec

// Optional carries a decoded value together with whether the field was
// physically present in the record. The zero Optional is absent.
type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{value: v, present: true} }
func None[T any]() Optional[T]    { return Optional[T]{} }

func optionalOf[T any](v T, ok bool) Optional[T] {
	if !ok {
		return Optional[T]{}
	}
	return Optional[T]{value: v, present: true}
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.present }

func (o Optional[T]) IsPresent() bool { return o.present }

// Value returns the value, or the zero value of T when absent.
func (o Optional[T]) Value() T { return o.value }

// Or returns the value when present, def otherwise.
func (o Optional[T]) Or(def T) T {
	if o.present {
		return o.value
	}
	return def
}
