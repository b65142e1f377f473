// Package query assembles filtered, paginated list queries. A Spec declares
// the base SELECT and an ordered list of optional filters; Build turns request
// values into a COUNT statement and a page statement that share one WHERE
// clause and one argument list.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Style int

const (
	// Exact compares column = value.
	Exact Style = iota
	// Like compares column ILIKE %value%.
	Like
	// DateFrom compares column >= value.
	DateFrom
	// DateTo compares column <= value. A date-only value is extended to
	// 23:59:59 of that day.
	DateTo
)

type Kind int

const (
	Text Kind = iota
	Int
	Bool
)

// Filter maps one request parameter onto a column predicate. Also lists extra
// columns matched against the same bound value, joined with OR.
type Filter struct {
	Param  string
	Column string
	Style  Style
	Kind   Kind
	Also   []string
}

// Values is satisfied by url.Values.
type Values interface {
	Get(key string) string
}

// InvalidFilterError reports a filter value that cannot be bound to its
// column type.
type InvalidFilterError struct {
	Param string
	Value string
}

func (e InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %s", e.Value, e.Param)
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

func (f Filter) bind(raw string) (interface{}, error) {
	switch f.Style {
	case Like:
		return "%" + raw + "%", nil
	case DateFrom, DateTo:
		return parseBound(raw, f.Style == DateTo, f.Param)
	}
	switch f.Kind {
	case Int:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, InvalidFilterError{Param: f.Param, Value: raw}
		}
		return value, nil
	case Bool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, InvalidFilterError{Param: f.Param, Value: raw}
		}
		return value, nil
	}
	return raw, nil
}

func (f Filter) predicate(position int) string {
	placeholder := "$" + strconv.Itoa(position)
	op := "="
	switch f.Style {
	case Like:
		op = "ILIKE"
	case DateFrom:
		op = ">="
	case DateTo:
		op = "<="
	}
	if len(f.Also) == 0 {
		return f.Column + " " + op + " " + placeholder
	}
	parts := make([]string, 0, len(f.Also)+1)
	for _, column := range append([]string{f.Column}, f.Also...) {
		parts = append(parts, column+" "+op+" "+placeholder)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// EndOfDay reports the bound used for an inclusive "to" date.
func EndOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
}

func parseBound(raw string, upper bool, param string) (time.Time, error) {
	if day, err := time.Parse(dateLayout, raw); err == nil {
		if upper {
			return EndOfDay(day), nil
		}
		return day, nil
	}
	if value, err := time.Parse(dateTimeLayout, raw); err == nil {
		return value, nil
	}
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return value.UTC(), nil
	}
	return time.Time{}, InvalidFilterError{Param: param, Value: raw}
}
