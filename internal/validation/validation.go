// Package validation checks data-quality expectations on canonical tables before
// they are persisted.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
)

// MaxUnexpectedRows caps the row sample kept on a Result.
const MaxUnexpectedRows = 20

// Expectation names.
const (
	ExpectationColumnToExist           = "expect_column_to_exist"
	ExpectationValuesToNotBeNull       = "expect_column_values_to_not_be_null"
	ExpectationValuesToBeUnique        = "expect_column_values_to_be_unique"
	ExpectationValuesToBeBetween       = "expect_column_values_to_be_between"
	ExpectationValuesToBeOfType        = "expect_column_values_to_be_of_type"
	ExpectationValuesToMatchRegex      = "expect_column_values_to_match_regex"
	ExpectationValueLengthsToBeBetween = "expect_column_value_lengths_to_be_between"
)

var (
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	videoIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ErrValidationFailed is wrapped by every *ValidationError.
var ErrValidationFailed = errors.New("validation failed")

// Result is the outcome of one expectation.
type Result struct {
	Expectation     string
	Column          string
	Success         bool
	UnexpectedCount int
	// UnexpectedRows holds the indexes of up to MaxUnexpectedRows offending rows.
	UnexpectedRows []int
}

func (r Result) String() string {
	return fmt.Sprintf("%s(%s): %d unexpected", r.Expectation, r.Column, r.UnexpectedCount)
}

// ValidationError lists the failed expectations of one dataset.
type ValidationError struct {
	Dataset  string
	Failures []Result
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s for %s: %s", ErrValidationFailed, e.Dataset, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Validator runs expectations against one table and collects their results.
type Validator struct {
	table   *dataset.Table
	results []Result
}

// New creates a Validator for table.
func New(table *dataset.Table) *Validator {
	return &Validator{table: table}
}

// Results returns every result recorded so far.
func (v *Validator) Results() []Result {
	return v.results
}

// Failures returns the unsuccessful results.
func (v *Validator) Failures() []Result {
	var failed []Result
	for _, r := range v.results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err returns a *ValidationError when any expectation failed.
func (v *Validator) Err() error {
	failures := v.Failures()
	if len(failures) == 0 {
		return nil
	}
	return &ValidationError{Dataset: v.table.Name, Failures: failures}
}

// ExpectColumnToExist checks that the table has the column.
func (v *Validator) ExpectColumnToExist(column string) Result {
	return v.record(Result{
		Expectation: ExpectationColumnToExist,
		Column:      column,
		Success:     v.table.ColumnIndex(column) >= 0,
	})
}

// ExpectColumnValuesToNotBeNull checks that no value of the column is null.
func (v *Validator) ExpectColumnValuesToNotBeNull(column string) Result {
	return v.check(ExpectationValuesToNotBeNull, column, func(val any) bool {
		return val != nil
	})
}

// ExpectColumnValuesToBeUnique checks that no non-null value appears twice. Every
// row holding a repeated value is unexpected.
func (v *Validator) ExpectColumnValuesToBeUnique(column string) Result {
	values, ok := v.table.Values(column)
	if !ok {
		return v.missing(ExpectationValuesToBeUnique, column)
	}

	counts := make(map[any]int, len(values))
	for _, val := range values {
		if val != nil {
			counts[uniqueKey(val)]++
		}
	}

	return v.evaluate(ExpectationValuesToBeUnique, column, values, func(val any) bool {
		return val == nil || counts[uniqueKey(val)] == 1
	})
}

// ExpectColumnValuesToBeBetween checks that every non-null value is an int64 in
// [minValue, maxValue].
func (v *Validator) ExpectColumnValuesToBeBetween(column string, minValue, maxValue int64) Result {
	return v.check(ExpectationValuesToBeBetween, column, func(val any) bool {
		if val == nil {
			return true
		}
		n, ok := val.(int64)
		return ok && n >= minValue && n <= maxValue
	})
}

// ExpectColumnValuesToBeOfType checks that every non-null value holds the Go type
// of kind.
func (v *Validator) ExpectColumnValuesToBeOfType(column string, kind dataset.Kind) Result {
	return v.check(ExpectationValuesToBeOfType, column, func(val any) bool {
		return val == nil || isKind(val, kind)
	})
}

// ExpectColumnValuesToMatchRegex checks that every non-null value is a string
// matching re.
func (v *Validator) ExpectColumnValuesToMatchRegex(column string, re *regexp.Regexp) Result {
	return v.check(ExpectationValuesToMatchRegex, column, func(val any) bool {
		if val == nil {
			return true
		}
		s, ok := val.(string)
		return ok && re.MatchString(s)
	})
}

// ExpectColumnValueLengthsToBeBetween checks that every non-null value is a
// string of minLen to maxLen runes.
func (v *Validator) ExpectColumnValueLengthsToBeBetween(column string, minLen, maxLen int) Result {
	return v.check(ExpectationValueLengthsToBeBetween, column, func(val any) bool {
		if val == nil {
			return true
		}
		s, ok := val.(string)
		if !ok {
			return false
		}
		n := utf8.RuneCountInString(s)
		return n >= minLen && n <= maxLen
	})
}

func (v *Validator) check(expectation, column string, valid func(any) bool) Result {
	values, ok := v.table.Values(column)
	if !ok {
		return v.missing(expectation, column)
	}
	return v.evaluate(expectation, column, values, valid)
}

func (v *Validator) evaluate(expectation, column string, values []any, valid func(any) bool) Result {
	res := Result{Expectation: expectation, Column: column}
	for i, val := range values {
		if valid(val) {
			continue
		}
		res.UnexpectedCount++
		if len(res.UnexpectedRows) < MaxUnexpectedRows {
			res.UnexpectedRows = append(res.UnexpectedRows, i)
		}
	}
	res.Success = res.UnexpectedCount == 0
	return v.record(res)
}

// missing fails an expectation on a column the table does not have.
func (v *Validator) missing(expectation, column string) Result {
	return v.record(Result{
		Expectation:     expectation,
		Column:          column,
		UnexpectedCount: v.table.Len(),
	})
}

func (v *Validator) record(r Result) Result {
	v.results = append(v.results, r)
	return r
}

func isKind(val any, kind dataset.Kind) bool {
	switch kind {
	case dataset.KindInt64:
		_, ok := val.(int64)
		return ok
	case dataset.KindTimestamp:
		_, ok := val.(time.Time)
		return ok
	case dataset.KindString, dataset.KindText, dataset.KindDate, dataset.KindTime:
		_, ok := val.(string)
		return ok
	default:
		return false
	}
}

// uniqueKey normalizes timestamps so equal instants in different zones collide.
func uniqueKey(val any) any {
	if ts, ok := val.(time.Time); ok {
		return ts.UTC()
	}
	return val
}

// IsValidChannelID reports whether id has the shape of a YouTube channel id.
func IsValidChannelID(id string) bool {
	return channelIDRegex.MatchString(id)
}
