package crontab

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCommand = errors.New("job command is empty")
	ErrJobNotFound  = errors.New("no matching job")
)

type InvalidScheduleError struct {
	Field  string
	Token  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid schedule %q: %s", e.Token, e.Reason)
	}
	return fmt.Sprintf("invalid %s field: bad token %q: %s", e.Field, e.Token, e.Reason)
}

type InvalidEnvironmentError struct {
	Name string
}

func (e *InvalidEnvironmentError) Error() string {
	return fmt.Sprintf("invalid environment variable name: %q", e.Name)
}
