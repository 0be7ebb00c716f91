package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aptible/cronman/crontab"
	"github.com/aptible/cronman/store"
	"github.com/sirupsen/logrus"
)

var errUsage = errors.New("usage error")

// envFlag collects repeated -env NAME=VALUE flags.
type envFlag map[string]string

func (e envFlag) String() string {
	pairs := make([]string, 0, len(e))
	for k, v := range e {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (e envFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected NAME=VALUE, got %q", value)
	}
	e[name] = val
	return nil
}

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// scheduleAndCommand reads the "M H DOM MON DOW" COMMAND... arguments
// shared by add, remove and toggle.
func scheduleAndCommand(args []string) (crontab.Schedule, string, error) {
	if len(args) < 2 {
		return crontab.Schedule{}, "", usageError(`expected "M H DOM MON DOW" COMMAND`)
	}

	schedule, err := crontab.ParseSchedule(args[0])
	if err != nil {
		return crontab.Schedule{}, "", err
	}

	return schedule, strings.Join(args[1:], " "), nil
}

func listJobs(s *store.Store, out io.Writer, now time.Time) error {
	jobs, err := s.ListJobs()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tSCHEDULE\tCOMMAND\tNEXT RUN\tDESCRIPTION")

	for _, job := range jobs {
		state, next := "enabled", "-"
		if !job.Enabled {
			state = "disabled"
		} else if t := job.Schedule.Next(now); !t.IsZero() {
			next = t.Format(time.RFC3339)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", state, job.Schedule, job.CommandLine(), next, crontab.Describe(job.Schedule))
	}

	return w.Flush()
}

func addJob(s *store.Store, logger *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	disabled := fs.Bool("disabled", false, "add the job switched off")
	display := fs.Bool("display", false, "set DISPLAY=:0 for graphical commands")
	comment := fs.String("comment", "", "comment stored on the job line")
	env := envFlag{}
	fs.Var(env, "env", "NAME=VALUE set for the job (repeatable)")

	if err := fs.Parse(args); err != nil {
		return usageError("add: %v", err)
	}

	schedule, command, err := scheduleAndCommand(fs.Args())
	if err != nil {
		return err
	}

	if *display {
		env["DISPLAY"] = ":0"
	}

	job := &crontab.Job{
		Schedule:    schedule,
		Command:     command,
		Environment: env,
		Enabled:     !*disabled,
		Comment:     *comment,
	}

	c, err := s.Load()
	if err != nil {
		return err
	}

	if err := c.AddJob(job); err != nil {
		return err
	}

	if err := s.Save(c); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"schedule": schedule.String(), "command": command}).Info("job added")
	return nil
}

func removeJob(s *store.Store, logger *logrus.Entry, args []string) error {
	schedule, command, err := scheduleAndCommand(args)
	if err != nil {
		return err
	}

	c, err := s.Load()
	if err != nil {
		return err
	}

	jobLogger := logger.WithFields(logrus.Fields{"schedule": schedule.String(), "command": command})

	removed := c.RemoveJob(crontab.Matching(schedule, command))
	if removed == 0 {
		jobLogger.Warn("no matching job, nothing removed")
		return nil
	}
	if removed > 1 {
		jobLogger.Warnf("%d identical jobs matched, removing all of them", removed)
	}

	if err := s.Save(c); err != nil {
		return err
	}

	jobLogger.Info("job removed")
	return nil
}

func toggleJob(s *store.Store, logger *logrus.Entry, args []string) error {
	schedule, command, err := scheduleAndCommand(args)
	if err != nil {
		return err
	}

	c, err := s.Load()
	if err != nil {
		return err
	}

	jobLogger := logger.WithFields(logrus.Fields{"schedule": schedule.String(), "command": command})

	toggled, err := c.ToggleJob(crontab.Matching(schedule, command))
	if err != nil {
		return err
	}
	if toggled > 1 {
		jobLogger.Warnf("%d identical jobs matched, toggling all of them", toggled)
	}

	if err := s.Save(c); err != nil {
		return err
	}

	jobLogger.Info("job toggled")
	return nil
}
