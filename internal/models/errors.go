package models

import "errors"

// ErrNotFound is returned when a topic, account or proposal does not exist
var ErrNotFound = errors.New("not found")
