package audio

import "errors"

// ErrInvalidOption is returned by SetOption for a value the unit does not
// recognize.
var ErrInvalidOption = errors.New("audio: invalid option value")
