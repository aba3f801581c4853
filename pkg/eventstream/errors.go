package eventstream

import "errors"

// ErrNilSessionEvent indicates a nil session event payload was provided to a
// publisher.
var ErrNilSessionEvent = errors.New("nil session event")
