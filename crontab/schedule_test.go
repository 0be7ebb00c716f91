package crontab

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseFieldTestCases = []struct {
	text      string
	domain    Domain
	canonical string
}{
	{"*", MinuteDomain, "*"},
	{"0", MinuteDomain, "0"},
	{"59", MinuteDomain, "59"},
	{"*/5", MinuteDomain, "*/5"},
	{"*/1", MinuteDomain, "*/1"},
	{"10-20/5", MinuteDomain, "10-20/5"},
	{"3/15", MinuteDomain, "3/15"},
	{"1,2,3", HourDomain, "1,2,3"},
	{"0-4,8-12,*/6", HourDomain, "0-4,8-12,*/6"},
	{"007", HourDomain, "7"},
	{"1-31", DayOfMonthDomain, "1-31"},
	{"jan", MonthDomain, "1"},
	{"Jun-AUG", MonthDomain, "6-8"},
	{"mon-fri", DayOfWeekDomain, "1-5"},
	{"sun,sat", DayOfWeekDomain, "0,6"},
}

var parseFieldFailureCases = []struct {
	text   string
	domain Domain
}{
	{"", MinuteDomain},
	{"60", MinuteDomain},
	{"24", HourDomain},
	{"0", DayOfMonthDomain},
	{"32", DayOfMonthDomain},
	{"13", MonthDomain},
	{"7", DayOfWeekDomain},
	{"5-1", MinuteDomain},
	{"*/0", MinuteDomain},
	{"*/61", MinuteDomain},
	{"1,,2", MinuteDomain},
	{"+5", MinuteDomain},
	{"-5", MinuteDomain},
	{"a", MinuteDomain},
	{"mon", MonthDomain},
	{"1-", HourDomain},
	{"*/", HourDomain},
}

func TestParseField(t *testing.T) {
	for _, tt := range parseFieldTestCases {
		label := fmt.Sprintf("ParseField(%q, %s)", tt.text, tt.domain.Name)

		field, err := ParseField(tt.text, tt.domain)
		if assert.NoError(t, err, label) {
			assert.Equal(t, tt.canonical, field.String(), label)
		}
	}
}

func TestParseFieldFailures(t *testing.T) {
	for _, tt := range parseFieldFailureCases {
		label := fmt.Sprintf("ParseField(%q, %s)", tt.text, tt.domain.Name)

		_, err := ParseField(tt.text, tt.domain)

		var scheduleErr *InvalidScheduleError
		if assert.True(t, errors.As(err, &scheduleErr), label) {
			assert.Equal(t, tt.domain.Name, scheduleErr.Field, label)
			assert.Contains(t, err.Error(), tt.domain.Name, label)
		}
	}
}

func TestParseFieldReportsOffendingToken(t *testing.T) {
	_, err := ParseField("1,2,99", MinuteDomain)

	var scheduleErr *InvalidScheduleError
	require.True(t, errors.As(err, &scheduleErr))
	assert.Equal(t, "99", scheduleErr.Token)
	assert.Equal(t, "minute", scheduleErr.Field)
}

func TestParseScheduleTerms(t *testing.T) {
	s, err := ParseSchedule("*/5 9-17 * * 1-5")
	require.NoError(t, err)

	assert.Equal(t, []Term{{Kind: Step, Lo: 0, Hi: 59, Step: 5, Base: Wildcard}}, s.Field(Minute).Terms)
	assert.Equal(t, []Term{{Kind: Range, Lo: 9, Hi: 17}}, s.Field(Hour).Terms)
	assert.True(t, s.Field(DayOfMonth).IsWildcard())
	assert.True(t, s.Field(Month).IsWildcard())
	assert.Equal(t, []Term{{Kind: Range, Lo: 1, Hi: 5}}, s.Field(DayOfWeek).Terms)
}

func TestParseScheduleFieldCount(t *testing.T) {
	for _, text := range []string{"", "* * * *", "* * * * * *", "@daily"} {
		_, err := ParseSchedule(text)

		var scheduleErr *InvalidScheduleError
		assert.True(t, errors.As(err, &scheduleErr), text)
	}
}

func TestScheduleWithField(t *testing.T) {
	s := MustParseSchedule("0 2 * * *")

	hour, err := ParseField("3", HourDomain)
	require.NoError(t, err)

	changed, err := s.WithField(Hour, hour)
	require.NoError(t, err)

	assert.Equal(t, "0 3 * * *", changed.String())
	assert.Equal(t, "0 2 * * *", s.String())

	_, err = s.WithField(Minute, hour)
	assert.Error(t, err)
}

func TestScheduleWithFieldChecksDomain(t *testing.T) {
	s := MustParseSchedule("0 2 * * *")

	fields := []Field{
		{Domain: MinuteDomain, Terms: []Term{{Kind: Value, Lo: 99, Hi: 99}}},
		{Domain: MinuteDomain, Terms: []Term{{Kind: Range, Lo: 30, Hi: 10}}},
		{Domain: MinuteDomain},
	}

	for _, f := range fields {
		changed, err := s.WithField(Minute, f)

		var scheduleErr *InvalidScheduleError
		assert.True(t, errors.As(err, &scheduleErr), f.String())
		assert.Equal(t, Schedule{}, changed, f.String())
	}

	assert.Equal(t, "0 2 * * *", s.String())
}

func TestDescribeUninitializedSchedule(t *testing.T) {
	assert.Equal(t, "never", Describe(Schedule{}))
	assert.Equal(t, "no minute", describeField(Field{Domain: MinuteDomain}, func(v int) string { return "" }))
}

func TestScheduleFieldIsACopy(t *testing.T) {
	s := MustParseSchedule("1 2 3 4 5")

	f := s.Field(Minute)
	f.Terms[0].Lo = 42

	assert.Equal(t, "1 2 3 4 5", s.String())
}

func TestScheduleEqualIgnoresSpelling(t *testing.T) {
	assert.True(t, MustParseSchedule("0 9 * jan mon-fri").Equal(MustParseSchedule("0  9 * 1 1-5")))
	assert.False(t, MustParseSchedule("0 9 * * *").Equal(MustParseSchedule("0 10 * * *")))
}

func TestScheduleNext(t *testing.T) {
	from := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t,
		time.Date(2026, 1, 16, 2, 0, 0, 0, time.UTC),
		MustParseSchedule("0 2 * * *").Next(from))

	assert.Equal(t,
		time.Date(2026, 1, 15, 10, 5, 0, 0, time.UTC),
		MustParseSchedule("*/5 * * * *").Next(from))
}

var describeTestCases = []struct {
	schedule string
	expected string
}{
	{"* * * * *", "every minute"},
	{"0 2 * * *", "every day at 02:00"},
	{"*/5 * * * *", "every 5 minutes"},
	{"15 * * * *", "at minute 15 of every hour"},
	{"30 9 * * 1-5", "at 09:30 on Monday through Friday"},
	{"0 0 1 1 *", "at 00:00 on day 1 of the month in January"},
	{"0 12 * * 0,6", "at 12:00 on Sunday and Saturday"},
	{"* 3 * * *", "every minute during hour 3"},
}

func TestDescribe(t *testing.T) {
	for _, tt := range describeTestCases {
		assert.Equal(t, tt.expected, Describe(MustParseSchedule(tt.schedule)), tt.schedule)
	}
}
