package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

type TargetKind int

const (
	FileTarget TargetKind = iota
	UserTarget
)

const userTargetPrefix = "user"

// Target names where a crontab lives: "user" is the invoking user's
// crontab, "user:NAME" another user's, anything else a file path.
type Target struct {
	Kind TargetKind
	Path string
	User string
}

func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return Target{}, fmt.Errorf("empty crontab target")
	case s == userTargetPrefix:
		return Target{Kind: UserTarget}, nil
	case strings.HasPrefix(s, userTargetPrefix+":"):
		name := strings.TrimPrefix(s, userTargetPrefix+":")
		if name == "" || strings.ContainsAny(name, " \t/") {
			return Target{}, fmt.Errorf("invalid user in crontab target %q", s)
		}
		return Target{Kind: UserTarget, User: name}, nil
	default:
		return Target{Kind: FileTarget, Path: filepath.Clean(s)}, nil
	}
}

func (t Target) String() string {
	switch t.Kind {
	case UserTarget:
		if t.User == "" {
			return userTargetPrefix
		}
		return userTargetPrefix + ":" + t.User
	default:
		return t.Path
	}
}
