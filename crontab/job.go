package crontab

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DisabledPrefix marks a job line that has been switched off. Plain
// comments that merely look like jobs are left alone.
const DisabledPrefix = "#disabled: "

var (
	jobLineSeparator = regexp.MustCompile(`\S+`)
	envNameMatcher   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	envTokenMatcher  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=`)
	safeEnvValue     = regexp.MustCompile(`^[A-Za-z0-9_:./,@+=-]+$`)
)

// Job is one crontab entry. Environment holds variables set inline on the
// job line, e.g. DISPLAY=:0 for graphical commands.
type Job struct {
	Schedule    Schedule
	Command     string
	Environment map[string]string
	Enabled     bool
	Comment     string
}

// Predicate selects jobs for RemoveJob and ToggleJob.
type Predicate func(*Job) bool

// NewJob validates and builds an enabled or disabled job. Leading
// NAME=value words of command and a trailing " # comment" are moved into
// Environment and Comment, the same way ParseLine reads them back.
func NewJob(schedule Schedule, command string, environment map[string]string, enabled bool) (*Job, error) {
	if err := schedule.validate(); err != nil {
		return nil, err
	}

	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}
	if strings.ContainsAny(command, "\r\n") {
		return nil, fmt.Errorf("job command spans multiple lines: %q", command)
	}

	env := make(map[string]string, len(environment))
	for name, value := range environment {
		if !envNameMatcher.MatchString(name) {
			return nil, &InvalidEnvironmentError{Name: name}
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("environment variable %s spans multiple lines", name)
		}
		env[name] = value
	}

	inline, command, comment := splitCommand(command)
	if len(inline) == 0 && len(env) > 0 && onlyAssignments(command) {
		// Rendered after env, the assignments would be read back as more env.
		return nil, ErrEmptyCommand
	}
	for name, value := range inline {
		env[name] = value
	}

	return &Job{
		Schedule:    schedule,
		Command:     command,
		Environment: env,
		Enabled:     enabled,
		Comment:     comment,
	}, nil
}

// Line renders the job as a single crontab line, without line terminator.
func (j *Job) Line() string {
	var b strings.Builder

	if !j.Enabled {
		b.WriteString(DisabledPrefix)
	}

	b.WriteString(j.Schedule.String())
	b.WriteByte(' ')
	b.WriteString(j.CommandLine())

	if j.Comment != "" {
		b.WriteString(" # ")
		b.WriteString(strings.ReplaceAll(j.Comment, "\n", " "))
	}

	return b.String()
}

// CommandLine renders the inline environment followed by the command, as
// it appears after the schedule.
func (j *Job) CommandLine() string {
	names := make([]string, 0, len(j.Environment))
	for name := range j.Environment {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(quoteEnvValue(j.Environment[name]))
		b.WriteByte(' ')
	}
	b.WriteString(j.Command)

	return b.String()
}

// Matches reports whether j has the given schedule and command. command
// is read like the tail of a job line, so "DISPLAY=:0 xclock" matches a
// job running xclock with DISPLAY set and nothing else.
func (j *Job) Matches(schedule Schedule, command string) bool {
	if !j.Schedule.Equal(schedule) {
		return false
	}

	env, command, _ := splitCommand(strings.TrimSpace(command))
	if j.Command != command || len(j.Environment) != len(env) {
		return false
	}
	for name, value := range env {
		if v, ok := j.Environment[name]; !ok || v != value {
			return false
		}
	}
	return true
}

func (j *Job) Clone() *Job {
	out := *j
	out.Environment = make(map[string]string, len(j.Environment))
	for k, v := range j.Environment {
		out.Environment[k] = v
	}
	return &out
}

// Matching selects jobs by exact schedule and command. Two jobs with the
// same schedule and command are indistinguishable and are both selected.
func Matching(schedule Schedule, command string) Predicate {
	return func(j *Job) bool {
		return j.Matches(schedule, command)
	}
}

// ParseLine reads a job from a crontab line. It reports false for
// anything that is not a five-field job line; such lines are kept
// verbatim by the caller.
func ParseLine(text string) (*Job, bool) {
	line := strings.TrimRight(strings.TrimLeft(text, " \t"), " \t\r")
	enabled := true

	if strings.HasPrefix(line, DisabledPrefix) {
		enabled = false
		line = strings.TrimLeft(line[len(DisabledPrefix):], " \t")
	} else if strings.HasPrefix(line, "#") {
		return nil, false
	}

	indices := jobLineSeparator.FindAllStringIndex(line, -1)
	if len(indices) <= fieldCount {
		return nil, false
	}

	schedule, err := ParseSchedule(line[:indices[fieldCount-1][1]])
	if err != nil {
		return nil, false
	}

	env, command, comment := splitCommand(line[indices[fieldCount][0]:])
	if command == "" {
		return nil, false
	}

	return &Job{
		Schedule:    schedule,
		Command:     command,
		Environment: env,
		Enabled:     enabled,
		Comment:     comment,
	}, true
}

// splitCommand reads what follows the schedule on a job line: inline
// assignments, the command and a trailing comment.
func splitCommand(rest string) (map[string]string, string, string) {
	body, comment := splitComment(rest)

	env, command := parseEnvPrefix(body)
	if command == "" {
		// Nothing but assignments: cron runs them as the command.
		return map[string]string{}, body, comment
	}
	return env, command, comment
}

func onlyAssignments(s string) bool {
	_, rest := parseEnvPrefix(s)
	return rest == ""
}

func parseEnvPrefix(s string) (map[string]string, string) {
	env := map[string]string{}

	for {
		m := envTokenMatcher.FindStringSubmatch(s)
		if m == nil {
			return env, s
		}

		value, rest, ok := scanEnvValue(s[len(m[0]):])
		if !ok {
			return env, s
		}

		env[m[1]] = value
		s = strings.TrimLeft(rest, " \t")
	}
}

func scanEnvValue(s string) (string, string, bool) {
	if strings.HasPrefix(s, "'") {
		var b strings.Builder
		i := 1
		for {
			j := strings.IndexByte(s[i:], '\'')
			if j < 0 {
				return "", "", false
			}
			b.WriteString(s[i : i+j])
			i += j + 1
			if strings.HasPrefix(s[i:], `\''`) {
				b.WriteByte('\'')
				i += 3
				continue
			}
			break
		}
		if i < len(s) && s[i] != ' ' && s[i] != '\t' {
			return "", "", false
		}
		return b.String(), s[i:], true
	}

	end := strings.IndexAny(s, " \t")
	if end < 0 {
		end = len(s)
	}
	value := s[:end]
	if strings.ContainsAny(value, "'\"\\`$") {
		return "", "", false
	}
	return value, s[end:], true
}

func quoteEnvValue(v string) string {
	if safeEnvValue.MatchString(v) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// splitComment separates a trailing shell comment: a '#' outside quotes
// that follows whitespace.
func splitComment(s string) (string, string) {
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else if c == '\\' && quote == '"' {
				i++
			}
		case c == '\\':
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == '#' && i > 0 && (s[i-1] == ' ' || s[i-1] == '\t'):
			return strings.TrimRight(s[:i], " \t"), strings.TrimSpace(s[i+1:])
		}
	}

	return strings.TrimSpace(s), ""
}
