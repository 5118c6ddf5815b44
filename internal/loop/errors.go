package loop

import "errors"

// ErrAlreadyRunning is returned when Run or Simulate is called while the
// loop is already being driven.
var ErrAlreadyRunning = errors.New("loop: already running")
