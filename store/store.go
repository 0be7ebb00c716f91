package store

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/aptible/cronman/crontab"
	"github.com/aptible/cronman/prometheus_metrics"
	"github.com/sirupsen/logrus"
)

type State int

const (
	Unopened State = iota
	Loaded
	Saved
	Failed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Loaded:
		return "loaded"
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type backend interface {
	check() error
	read() ([]byte, error)
	write(content []byte) error
}

// Store binds a crontab to its target. One Store per target: concurrent
// edits of the same target by two stores or processes lose updates.
type Store struct {
	target         Target
	backend        backend
	logger         *logrus.Entry
	metrics        *prometheus_metrics.PrometheusMetrics
	crontabCommand string
	state          State
	current        *crontab.Crontab
}

type Option func(*Store)

func WithLogger(logger *logrus.Entry) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(metrics *prometheus_metrics.PrometheusMetrics) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// WithCrontabCommand sets the crontab(1) binary used for user targets.
func WithCrontabCommand(command string) Option {
	return func(s *Store) {
		s.crontabCommand = command
	}
}

// Open checks that target can be read. An unreadable target yields an
// *AccessError.
func Open(target string, opts ...Option) (*Store, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	s := &Store{
		target:         t,
		logger:         logrus.NewEntry(logrus.StandardLogger()),
		crontabCommand: DefaultCrontabCommand,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithFields(logrus.Fields{"target": t.String()})

	switch t.Kind {
	case UserTarget:
		s.backend = &userBackend{user: t.User, command: s.crontabCommand, logger: s.logger}
	default:
		s.backend = newFileBackend(t.Path, s.logger)
	}

	if err := s.backend.check(); err != nil {
		s.metrics.ObserveFailure(t.String(), "open")
		return nil, &AccessError{Target: t.String(), Err: err}
	}

	s.logger.Debug("opened crontab")

	return s, nil
}

func (s *Store) Target() Target {
	return s.target
}

func (s *Store) State() State {
	return s.state
}

// Crontab returns the document last loaded or saved, or nil.
func (s *Store) Crontab() *crontab.Crontab {
	return s.current
}

func (s *Store) Load() (*crontab.Crontab, error) {
	content, err := s.backend.read()
	if err != nil {
		return nil, s.fail("load", &AccessError{Target: s.target.String(), Err: err})
	}

	if !utf8.Valid(content) {
		return nil, s.fail("load", invalidText(s.target.String(), content))
	}

	c := crontab.ParseString(string(content))

	s.current = c
	s.state = Loaded

	enabled, disabled := countJobs(c)
	s.metrics.ObserveLoad(s.target.String(), enabled, disabled)
	s.logger.Debugf("loaded %d jobs (%d disabled)", enabled+disabled, disabled)

	return c, nil
}

// Reload discards in-memory edits and reads the target again. Save first
// to keep them.
func (s *Store) Reload() (*crontab.Crontab, error) {
	return s.Load()
}

// Save writes c to the target. On failure the target keeps its previous
// content and a *WriteError is returned.
func (s *Store) Save(c *crontab.Crontab) error {
	if c == nil {
		c = s.current
	}
	if c == nil {
		return &WriteError{Target: s.target.String(), Err: ErrNothingLoaded}
	}

	start := time.Now()

	if err := s.backend.write([]byte(c.Serialize())); err != nil {
		return s.fail("save", &WriteError{Target: s.target.String(), Err: err})
	}

	s.current = c
	s.state = Saved

	enabled, disabled := countJobs(c)
	s.metrics.ObserveSave(s.target.String(), enabled, disabled, time.Since(start))
	s.logger.Infof("saved %d jobs", enabled+disabled)

	return nil
}

// ListJobs returns the jobs of the current document, loading it first if
// needed.
func (s *Store) ListJobs() ([]*crontab.Job, error) {
	if s.current == nil {
		if _, err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s.current.Jobs(), nil
}

func (s *Store) fail(operation string, err error) error {
	s.state = Failed
	s.metrics.ObserveFailure(s.target.String(), operation)
	s.logger.WithField("operation", operation).Debugf("failed: %v", err)
	return err
}

func countJobs(c *crontab.Crontab) (int, int) {
	enabled, disabled := 0, 0
	for _, job := range c.Jobs() {
		if job.Enabled {
			enabled++
		} else {
			disabled++
		}
	}
	return enabled, disabled
}

func invalidText(target string, content []byte) *ParseError {
	offset := 0
	for offset < len(content) {
		r, size := utf8.DecodeRune(content[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}

	return &ParseError{
		Target: target,
		Line:   bytes.Count(content[:offset], []byte("\n")) + 1,
		Offset: offset,
	}
}
