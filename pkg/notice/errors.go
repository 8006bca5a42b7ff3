package notice

import "errors"

// ErrUnknownTemplate is returned when a template name is not in the set.
var ErrUnknownTemplate = errors.New("notice: unknown template")
