package booking

import "errors"

// ErrInvalidRequest wraps every validation failure of a booking request.
var ErrInvalidRequest = errors.New("invalid booking request")
