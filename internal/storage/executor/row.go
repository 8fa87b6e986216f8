package executor

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row keyed by column name. Values are normalized to
// nil, int64, float64, bool, string or time.Time.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// NullString returns nil for SQL NULL.
func (r Row) NullString(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.String(col)
	return &s
}

func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	default:
		return 0
	}
}

func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	default:
		return 0
	}
}

func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		return r.Int64(col) != 0
	}
}

// Time reads a unix-seconds column.
func (r Row) Time(col string) time.Time {
	if t, ok := r[col].(time.Time); ok {
		return t
	}
	secs := r.Int64(col)
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
