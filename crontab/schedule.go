package crontab

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

type Position int

const (
	Minute Position = iota
	Hour
	DayOfMonth
	Month
	DayOfWeek

	fieldCount = 5
)

// Domain is the numeric range a schedule field accepts. Month and
// day-of-week also accept their three-letter English names.
type Domain struct {
	Name  string
	Min   int
	Max   int
	names map[string]int
}

var (
	MinuteDomain     = Domain{Name: "minute", Min: 0, Max: 59}
	HourDomain       = Domain{Name: "hour", Min: 0, Max: 23}
	DayOfMonthDomain = Domain{Name: "day-of-month", Min: 1, Max: 31}
	MonthDomain      = Domain{Name: "month", Min: 1, Max: 12, names: monthNames}
	DayOfWeekDomain  = Domain{Name: "day-of-week", Min: 0, Max: 6, names: dayNames}

	domains = [fieldCount]Domain{MinuteDomain, HourDomain, DayOfMonthDomain, MonthDomain, DayOfWeekDomain}

	monthNames = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	dayNames = map[string]int{
		"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	}
)

func (p Position) Domain() Domain {
	return domains[p]
}

func (p Position) String() string {
	if p < 0 || p >= fieldCount {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return domains[p].Name
}

type TermKind int

const (
	Wildcard TermKind = iota
	Value
	Range
	Step
)

// Term is one comma-separated element of a field. For Step terms, Base
// records how the stepped range was written (*, n or lo-hi) so it can be
// formatted back the same way.
type Term struct {
	Kind TermKind
	Lo   int
	Hi   int
	Step int
	Base TermKind
}

func (t Term) String() string {
	switch t.Kind {
	case Wildcard:
		return "*"
	case Value:
		return strconv.Itoa(t.Lo)
	case Range:
		return fmt.Sprintf("%d-%d", t.Lo, t.Hi)
	case Step:
		base := Term{Kind: t.Base, Lo: t.Lo, Hi: t.Hi}
		return fmt.Sprintf("%s/%d", base.String(), t.Step)
	}
	return ""
}

type Field struct {
	Domain Domain
	Terms  []Term
}

// ParseField parses the text of a single schedule field against domain.
func ParseField(text string, domain Domain) (Field, error) {
	if text == "" {
		return Field{}, &InvalidScheduleError{Field: domain.Name, Token: text, Reason: "empty field"}
	}

	tokens := strings.Split(text, ",")
	terms := make([]Term, 0, len(tokens))

	for _, token := range tokens {
		term, err := parseTerm(token, domain)
		if err != nil {
			return Field{}, err
		}
		terms = append(terms, term)
	}

	return Field{Domain: domain, Terms: terms}, nil
}

func parseTerm(token string, domain Domain) (Term, error) {
	fail := func(reason string) (Term, error) {
		return Term{}, &InvalidScheduleError{Field: domain.Name, Token: token, Reason: reason}
	}

	if token == "" {
		return fail("empty list element")
	}

	base, stepText, hasStep := strings.Cut(token, "/")

	var term Term

	switch {
	case base == "*":
		term = Term{Kind: Wildcard, Lo: domain.Min, Hi: domain.Max}
	case strings.Contains(base, "-"):
		loText, hiText, _ := strings.Cut(base, "-")
		lo, err := parseValue(loText, domain)
		if err != nil {
			return fail(err.Error())
		}
		hi, err := parseValue(hiText, domain)
		if err != nil {
			return fail(err.Error())
		}
		if lo > hi {
			return fail(fmt.Sprintf("range start %d is after range end %d", lo, hi))
		}
		term = Term{Kind: Range, Lo: lo, Hi: hi}
	default:
		v, err := parseValue(base, domain)
		if err != nil {
			return fail(err.Error())
		}
		term = Term{Kind: Value, Lo: v, Hi: v}
	}

	if !hasStep {
		return term, nil
	}

	step, err := parseNumber(stepText)
	if err != nil {
		return fail(fmt.Sprintf("bad step: %v", err))
	}
	if step < 1 || step > domain.Max-domain.Min+1 {
		return fail(fmt.Sprintf("step %d out of range 1-%d", step, domain.Max-domain.Min+1))
	}

	// A stepped single value runs to the end of the domain.
	if term.Kind == Value {
		term.Hi = domain.Max
	}

	term.Base = term.Kind
	term.Kind = Step
	term.Step = step

	return term, nil
}

func parseValue(text string, domain Domain) (int, error) {
	if v, ok := domain.names[strings.ToLower(text)]; ok {
		return v, nil
	}

	v, err := parseNumber(text)
	if err != nil {
		return 0, err
	}

	if v < domain.Min || v > domain.Max {
		return 0, fmt.Errorf("value %d out of range %d-%d", v, domain.Min, domain.Max)
	}

	return v, nil
}

func parseNumber(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("missing number")
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%q is not a number", text)
		}
	}
	return strconv.Atoi(text)
}

// String formats the field in canonical form: no whitespace, names
// replaced by numbers.
func (f Field) String() string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func (f Field) IsWildcard() bool {
	return len(f.Terms) == 1 && f.Terms[0].Kind == Wildcard
}

// Single returns the field's value when it is exactly one number.
func (f Field) Single() (int, bool) {
	if len(f.Terms) == 1 && f.Terms[0].Kind == Value {
		return f.Terms[0].Lo, true
	}
	return 0, false
}

func (f Field) clone() Field {
	terms := make([]Term, len(f.Terms))
	copy(terms, f.Terms)
	return Field{Domain: f.Domain, Terms: terms}
}

// Schedule is the five-field time specification of a job. The zero
// value is not a valid schedule; build one with ParseSchedule or
// NewSchedule.
type Schedule struct {
	fields [fieldCount]Field
}

func NewSchedule(minute, hour, dayOfMonth, month, dayOfWeek string) (Schedule, error) {
	var s Schedule

	for i, text := range []string{minute, hour, dayOfMonth, month, dayOfWeek} {
		f, err := ParseField(text, domains[i])
		if err != nil {
			return Schedule{}, err
		}
		s.fields[i] = f
	}

	return s, nil
}

// ParseSchedule parses "M H DOM MON DOW".
func ParseSchedule(text string) (Schedule, error) {
	parts := strings.Fields(text)
	if len(parts) != fieldCount {
		return Schedule{}, &InvalidScheduleError{
			Token:  text,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts)),
		}
	}
	return NewSchedule(parts[0], parts[1], parts[2], parts[3], parts[4])
}

func MustParseSchedule(text string) Schedule {
	s, err := ParseSchedule(text)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schedule) Field(p Position) Field {
	return s.fields[p].clone()
}

// WithField returns a copy of s with the field at p replaced.
func (s Schedule) WithField(p Position, f Field) (Schedule, error) {
	if p < 0 || p >= fieldCount {
		return Schedule{}, fmt.Errorf("no such schedule position: %d", int(p))
	}
	checked, err := checkField(p, f)
	if err != nil {
		return Schedule{}, err
	}

	out := s
	out.fields[p] = checked
	return out, nil
}

// checkField re-reads a possibly hand-built field through ParseField so
// that only values inside the domain reach a schedule.
func checkField(p Position, f Field) (Field, error) {
	if f.Domain.Name != domains[p].Name {
		return Field{}, &InvalidScheduleError{
			Field:  domains[p].Name,
			Token:  f.String(),
			Reason: fmt.Sprintf("field was parsed as %s", f.Domain.Name),
		}
	}
	return ParseField(f.String(), domains[p])
}

// validate reports the first field of s that is missing or outside its
// domain.
func (s Schedule) validate() error {
	if s.fields[0].Domain.Name == "" {
		return &InvalidScheduleError{Reason: "schedule is not initialized"}
	}
	for i, f := range s.fields {
		if _, err := checkField(Position(i), f); err != nil {
			return err
		}
	}
	return nil
}

func (s Schedule) String() string {
	parts := make([]string, fieldCount)
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, " ")
}

func (s Schedule) Equal(other Schedule) bool {
	return s.String() == other.String()
}

// Next returns the first activation strictly after from, or the zero time
// if there is none.
func (s Schedule) Next(from time.Time) time.Time {
	expr, err := cronexpr.Parse(s.String())
	if err != nil {
		return time.Time{}
	}
	return expr.Next(from)
}
