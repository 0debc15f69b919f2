package emitter

import (
	"context"
	"fmt"
)

type flagKind int

const (
	flagLiteral flagKind = iota
	flagPredicate
	flagAsyncPredicate
)

// Flag is a boolean that may be fixed at registration or computed at dispatch
// time. Construct it with Bool, Predicate or AsyncPredicate.
type Flag struct {
	kind      flagKind
	value     bool
	predicate func() bool
	async     func(ctx context.Context) (bool, error)
}

// Bool returns a flag with a fixed value.
func Bool(value bool) Flag {
	return Flag{kind: flagLiteral, value: value}
}

// Predicate returns a flag evaluated synchronously on every resolution.
func Predicate(fn func() bool) Flag {
	return Flag{kind: flagPredicate, predicate: fn}
}

// AsyncPredicate returns a flag whose evaluation may block or fail, e.g. one
// that waits on a dependency service.
func AsyncPredicate(fn func(ctx context.Context) (bool, error)) Flag {
	return Flag{kind: flagAsyncPredicate, async: fn}
}

// Resolve evaluates the flag.
func (f Flag) Resolve(ctx context.Context) (bool, error) {
	switch f.kind {
	case flagLiteral:
		return f.value, nil
	case flagPredicate:
		return f.predicate(), nil
	case flagAsyncPredicate:
		return f.async(ctx)
	default:
		return false, fmt.Errorf("unknown flag kind %d", f.kind)
	}
}

// IsLiteral reports whether the flag carries a fixed value, and that value.
func (f Flag) IsLiteral() (value, ok bool) {
	return f.value, f.kind == flagLiteral
}

func (f Flag) valid() bool {
	switch f.kind {
	case flagLiteral:
		return true
	case flagPredicate:
		return f.predicate != nil
	case flagAsyncPredicate:
		return f.async != nil
	default:
		return false
	}
}

func (f Flag) String() string {
	switch f.kind {
	case flagLiteral:
		return fmt.Sprintf("%t", f.value)
	case flagPredicate:
		return "predicate"
	default:
		return "async predicate"
	}
}
