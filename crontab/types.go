package crontab

// Context is the global environment a crontab sets up for its jobs with
// NAME=value lines.
type Context struct {
	Shell   string
	Environ map[string]string
}

// line is one line of a crontab. Lines that are not jobs are kept as raw
// text. A parsed job remembers its rendering at parse time so that an
// unmodified job is written back with its original bytes.
type line struct {
	raw    string
	cr     bool
	job    *Job
	parsed string
}

// Crontab is a parsed crontab document. It is not safe for concurrent use.
type Crontab struct {
	lines           []*line
	trailingNewline bool
}
