package types

import "errors"

// ErrUnknownResource is returned when a name is not part of AllResources.
var ErrUnknownResource = errors.New("unknown resource")
