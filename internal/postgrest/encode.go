package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/mallstore/internal/query"
)

// encodeFilter appends PostgREST filters for p to v. It reports false when
// the predicate can never match (an empty In), in which case callers skip
// the round trip.
func encodeFilter(v url.Values, p query.Predicate) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case query.Equals:
		if pred.Value == nil {
			v.Add(pred.Field, "is.null")
		} else {
			v.Add(pred.Field, "eq."+formatValue(pred.Value))
		}
		return true, nil
	case query.NotEquals:
		if pred.Value == nil {
			v.Add(pred.Field, "not.is.null")
		} else {
			v.Add(pred.Field, "neq."+formatValue(pred.Value))
		}
		return true, nil
	case query.In:
		if len(pred.Values) == 0 {
			return false, nil
		}
		parts := make([]string, len(pred.Values))
		for i, val := range pred.Values {
			parts[i] = quoteListItem(formatValue(val))
		}
		v.Add(pred.Field, "in.("+strings.Join(parts, ",")+")")
		return true, nil
	case query.And:
		for _, child := range pred.Predicates {
			ok, err := encodeFilter(v, child)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	case *query.Equals:
		return encodeFilter(v, *pred)
	case *query.NotEquals:
		return encodeFilter(v, *pred)
	case *query.In:
		return encodeFilter(v, *pred)
	case *query.And:
		return encodeFilter(v, *pred)
	default:
		return false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// encodeOrder renders order terms plus the id tiebreaker.
func encodeOrder(terms []query.Order) string {
	parts := make([]string, 0, len(terms)+1)
	hasID := false
	for _, o := range terms {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		if o.Field == "id" {
			hasID = true
		}
		parts = append(parts, o.Field+"."+dir)
	}
	if !hasID {
		parts = append(parts, "id.asc")
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// quoteListItem quotes in.() members that contain PostgREST reserved
// characters.
func quoteListItem(s string) string {
	if !strings.ContainsAny(s, `,()" `) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// rowBody prepares a row for JSON encoding.
func rowBody(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}

// parseContentRange extracts the total from "0-24/3573" or "*/0".
func parseContentRange(h string) (int64, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("malformed Content-Range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("Content-Range %q has no exact total", h)
	}
	return strconv.ParseInt(total, 10, 64)
}
