package app

import (
	"errors"

	"foodcost/internal/core"
)

// Callbacks lets callers react to the outcome of a mutation in addition to
// the returned (result, error). Every field is optional.
//
// Exactly one callback fires per call: OnLimitReached when writes are
// disabled, OnError for any other failure, OnSuccess otherwise. An empty cart
// is a successful no-op and fires OnSuccess with the zero result.
type Callbacks[T any] struct {
	OnSuccess      func(T)
	OnError        func(error)
	OnLimitReached func()
}

// settle fires the matching callback of every cbs entry and passes result and
// err through unchanged.
func settle[T any](result T, err error, cbs []Callbacks[T]) (T, error) {
	for _, cb := range cbs {
		switch {
		case err == nil:
			if cb.OnSuccess != nil {
				cb.OnSuccess(result)
			}
		case errors.Is(err, core.ErrLimitReached) && cb.OnLimitReached != nil:
			cb.OnLimitReached()
		case cb.OnError != nil:
			cb.OnError(err)
		}
	}
	return result, err
}
