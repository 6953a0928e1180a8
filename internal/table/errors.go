package table

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError indicates an upload that could not be parsed into a table.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("format error: %s", e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError indicates a selection that references columns the table does
// not have. Available always lists every column of the table.
type SchemaError struct {
	Missing   []string
	Available []string
	Msg       string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error: ")
	switch {
	case len(e.Missing) > 0:
		b.WriteString(fmt.Sprintf("column(s) not found: %s", strings.Join(quoteAll(e.Missing), ", ")))
	case e.Msg != "":
		b.WriteString(e.Msg)
	default:
		b.WriteString("invalid column selection")
	}
	b.WriteString(fmt.Sprintf("\nAvailable columns: %s", strings.Join(quoteAll(e.Available), ", ")))
	return b.String()
}

// AggregationError indicates a reducer that cannot be applied to a column.
type AggregationError struct {
	Column  string
	Reducer string
	Kind    Kind
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation error: %s requires a numeric column, but %q is %s", e.Reducer, e.Column, e.Kind)
}

// ExportError indicates an unsupported chart or a serialization failure.
type ExportError struct {
	Msg string
	Err error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("export error: %s", e.Msg)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ResourceError indicates input larger than the configured limits.
type ResourceError struct {
	What  string
	Limit int64
	Got   int64
}

func (e *ResourceError) Error() string {
	if e.Got > 0 {
		return fmt.Sprintf("resource error: %s exceeds limit (%d > %d)", e.What, e.Got, e.Limit)
	}
	return fmt.Sprintf("resource error: %s exceeds limit of %d", e.What, e.Limit)
}

// UserMessage is what the CLI and the dashboard show for a failed action.
type UserMessage struct {
	Code    string
	Message string
	Action  string
}

// MapError converts a pipeline error into a UserMessage. The underlying
// message is kept verbatim so parser details reach the user.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	var (
		fe *FormatError
		se *SchemaError
		ae *AggregationError
		ee *ExportError
		re *ResourceError
	)
	switch {
	case errors.As(err, &fe):
		return UserMessage{Code: "FMT", Message: fe.Error(), Action: "Upload a valid CSV or XLSX file with a header row"}
	case errors.As(err, &se):
		return UserMessage{Code: "SCH", Message: se.Error(), Action: "Pick one of the available columns"}
	case errors.As(err, &ae):
		return UserMessage{Code: "AGG", Message: ae.Error(), Action: "Use count for non-numeric columns"}
	case errors.As(err, &ee):
		return UserMessage{Code: "EXP", Message: ee.Error(), Action: "Choose bar, pie, scatter or box"}
	case errors.As(err, &re):
		return UserMessage{Code: "RES", Message: re.Error(), Action: "Split the file or raise the configured limit"}
	default:
		return UserMessage{Code: "ERR", Message: err.Error()}
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
