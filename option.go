package entity

import "log/slog"

type BindOption func(o *bindOption)

type bindOption struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report failed operations.
func WithLogger(logger *slog.Logger) BindOption {
	return func(o *bindOption) {
		o.logger = logger
	}
}

type LoadOption func(o *loadOption)

type loadOption struct {
	eager bool
}

// EagerLoad controls whether entity-reference fields are resolved in the
// same call. Loading is eager by default.
func EagerLoad(eager bool) LoadOption {
	return func(o *loadOption) {
		o.eager = eager
	}
}

// Lazy defers entity-reference fields until LoadRelated is called.
func Lazy() LoadOption {
	return EagerLoad(false)
}

func newLoadOption(options []LoadOption) *loadOption {
	opt := &loadOption{eager: true}
	for _, op := range options {
		op(opt)
	}

	return opt
}
