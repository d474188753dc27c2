package eventstream

import "errors"

// ErrNilFrameEvent indicates a nil frame event payload was provided to a publisher.
var ErrNilFrameEvent = errors.New("nil frame event")
