package store

import (
	"errors"
	"fmt"
)

// ErrNothingLoaded is wrapped in the WriteError of a Save(nil) that comes
// before any Load.
var ErrNothingLoaded = errors.New("no crontab loaded")

// AccessError reports a target that cannot be read, usually for lack of
// privilege. It only concerns that target; other stores keep working.
type AccessError struct {
	Target string
	Err    error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access crontab %s: %v", e.Target, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// ParseError reports content that is not text at all.
type ParseError struct {
	Target string
	Line   int
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("crontab %s is not valid UTF-8 text (line %d, byte %d)", e.Target, e.Line, e.Offset)
}

// WriteError reports a failed save. The target is left as it was.
type WriteError struct {
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write crontab %s: %v", e.Target, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
