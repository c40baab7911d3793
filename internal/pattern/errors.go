package pattern

import "errors"

// ErrUnknownPattern is returned when a property's pattern does not match any
// of absence/existence/requirement/response/prevention. Builder errors are
// fatal for the affected property: no MonitorSpec is produced.
var ErrUnknownPattern = errors.New("pattern: unknown pattern")

// ErrUnknownScope is returned when a property's scope is not one of
// global/after/until/after-until.
var ErrUnknownScope = errors.New("pattern: unknown scope")
