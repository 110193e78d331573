package tui

import "errors"

// ErrMissingSession is returned when no session service is provided.
var ErrMissingSession = errors.New("tui: session service is required")
