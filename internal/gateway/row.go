package gateway

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row keyed by column name.
//
// Backends disagree on scalar types (SQLite returns int64 and []byte, JSON
// returns float64 and string), so accessors coerce instead of asserting.
type Row map[string]any

// String returns the column as a string; missing or NULL is "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an int64; missing or NULL is 0.
func (r Row) Int(col string) (int64, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

// timeLayouts are the encodings observed from the SQL drivers and PostgREST.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Time returns the column as a UTC time; missing or NULL is the zero time.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTime(col, v)
	case []byte:
		return parseTime(col, string(v))
	default:
		return time.Time{}, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

func parseTime(col, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unparseable time %q", col, s)
}
