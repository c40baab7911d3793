package livebus

import "errors"

// ErrTransport is the sentinel wrapped by every client I/O failure. It
// is isolated to the offending client: other clients, and the manager
// feeding the bus, are unaffected.
var ErrTransport = errors.New("live-update bus transport error")
