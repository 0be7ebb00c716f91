package crontab

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var envLineMatcher = regexp.MustCompile(`^([^\s=]+)\s*=\s*(.*)$`)

const defaultShell = "/bin/sh"

// Parse reads a whole crontab. Lines that are not jobs never cause an
// error; only failing to read does.
func Parse(reader io.Reader) (*Crontab, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return ParseString(string(content)), nil
}

func ParseString(text string) *Crontab {
	c := &Crontab{}

	if text == "" {
		return c
	}

	parts := strings.Split(text, "\n")
	if parts[len(parts)-1] == "" {
		c.trailingNewline = true
		parts = parts[:len(parts)-1]
	}

	c.lines = make([]*line, 0, len(parts))
	for _, p := range parts {
		c.lines = append(c.lines, parseLine(p))
	}

	return c
}

func parseLine(text string) *line {
	l := &line{raw: text}

	body := text
	if strings.HasSuffix(body, "\r") {
		l.cr = true
		body = body[:len(body)-1]
	}

	if job, ok := ParseLine(body); ok {
		l.job = job
		l.parsed = job.Line()
		return l
	}

	trimmed := strings.TrimSpace(body)
	if trimmed != "" && trimmed[0] != '#' && !envLineMatcher.MatchString(trimmed) {
		logrus.WithField("line", body).Debug("keeping unrecognized crontab line as is")
	}

	return l
}

// Serialize renders the crontab. A freshly parsed crontab serializes to
// exactly the text it was parsed from.
func (c *Crontab) Serialize() string {
	var b strings.Builder

	for i, l := range c.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.text())
	}

	if c.trailingNewline {
		b.WriteByte('\n')
	}

	return b.String()
}

func (c *Crontab) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, c.Serialize())
	return int64(n), err
}

func (l *line) text() string {
	if l.job == nil {
		return l.raw
	}

	rendered := l.job.Line()
	if rendered == l.parsed {
		return l.raw
	}

	if l.cr {
		return rendered + "\r"
	}
	return rendered
}

// Jobs returns copies of the jobs in file order.
func (c *Crontab) Jobs() []*Job {
	jobs := make([]*Job, 0, len(c.lines))
	for _, l := range c.lines {
		if l.job != nil {
			jobs = append(jobs, l.job.Clone())
		}
	}
	return jobs
}

// AddJob appends job as the last line of the crontab.
func (c *Crontab) AddJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("cannot add nil job")
	}
	added, err := NewJob(job.Schedule, job.Command, job.Environment, job.Enabled)
	if err != nil {
		return err
	}
	added.Comment = joinComments(added.Comment, job.Comment)

	if back, ok := ParseLine(added.Line()); !ok || back.Line() != added.Line() {
		return fmt.Errorf("job line %q would not read back as the same job", added.Line())
	}

	c.lines = append(c.lines, &line{job: added})
	// cron ignores a last line without a newline.
	c.trailingNewline = true

	return nil
}

// joinComments combines a comment split off the command with the job's own,
// flattened to one line the way it will be read back.
func joinComments(comments ...string) string {
	var kept []string
	for _, c := range comments {
		c = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(c))
		if c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " # ")
}

// RemoveJob deletes every job matching pred and returns how many were
// removed. Removing nothing is not an error.
func (c *Crontab) RemoveJob(pred Predicate) int {
	kept := make([]*line, 0, len(c.lines))
	removed := 0

	for _, l := range c.lines {
		if l.job != nil && pred(l.job.Clone()) {
			removed++
			continue
		}
		kept = append(kept, l)
	}

	if removed > 0 {
		c.lines = kept
	}

	return removed
}

// ToggleJob flips Enabled on every job matching pred. It fails with
// ErrJobNotFound, leaving the crontab untouched, when nothing matches.
func (c *Crontab) ToggleJob(pred Predicate) (int, error) {
	var matched []*line

	for _, l := range c.lines {
		if l.job != nil && pred(l.job.Clone()) {
			matched = append(matched, l)
		}
	}

	if len(matched) == 0 {
		return 0, ErrJobNotFound
	}

	for _, l := range matched {
		l.job.Enabled = !l.job.Enabled
	}

	return len(matched), nil
}

// Context collects the global NAME=value assignments of the crontab.
// Later assignments win.
func (c *Crontab) Context() *Context {
	ctx := &Context{
		Shell:   defaultShell,
		Environ: map[string]string{},
	}

	for _, l := range c.lines {
		if l.job != nil {
			continue
		}

		trimmed := strings.TrimSpace(strings.TrimSuffix(l.raw, "\r"))
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}

		r := envLineMatcher.FindStringSubmatch(trimmed)
		if r == nil {
			continue
		}

		key, val := r[1], unquote(r[2])
		if key == "SHELL" {
			ctx.Shell = val
		}
		ctx.Environ[key] = val
	}

	return ctx
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
