package instance

import "errors"

// ErrNotImplemented is returned by the default Fetch/Alarm handlers so
// a host that forgets to wire a concrete implementation fails loudly
// instead of silently doing nothing.
var ErrNotImplemented = errors.New("not implemented")

// AlarmHandler runs when the host's scheduled alarm fires.
type AlarmHandler func(ctx *Context) error

// FetchHandler handles an inbound cross-instance or transport request.
type FetchHandler func(ctx *Context, method string, body []byte) (response []byte, status int, err error)

// DefaultAlarmHandler is the base-class placeholder for Alarm; it
// always returns ErrNotImplemented.
func DefaultAlarmHandler(_ *Context) error { return ErrNotImplemented }

// DefaultFetchHandler is the base-class placeholder for Fetch.
func DefaultFetchHandler(_ *Context, _ string, _ []byte) ([]byte, int, error) {
	return nil, 0, ErrNotImplemented
}
