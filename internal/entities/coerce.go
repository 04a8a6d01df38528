package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the accepted textual forms of KindTime values
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Coerce converts a submitted value to the kind's storage type.
// nil is passed through; NOT NULL is enforced by the database.
func (k Kind) Coerce(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch k {
	case KindInt:
		return coerceInt(v)
	case KindFloat:
		return coerceFloat(v)
	case KindString:
		return coerceString(v)
	case KindBool:
		return coerceBool(v)
	case KindTime:
		return coerceTime(v)
	default:
		return nil, fmt.Errorf("unsupported kind %s", k)
	}
}

func coerceInt(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		if n < -(1<<63) || n >= 1<<63 {
			return nil, fmt.Errorf("%v is out of range", n)
		}
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		// 5.0 and 1e3 are integers written as floats
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s is not an integer", n)
		}
		return coerceInt(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to int", v)
	}
}

func coerceFloat(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return coerceFloat(string(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to float", v)
	}
}

func coerceString(v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case int:
		return strconv.Itoa(s), nil
	case json.Number:
		return string(s), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to string", v)
	}
}

func coerceBool(v interface{}) (interface{}, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s is not a boolean", b)
		}
		return f != 0, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", b)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func coerceTime(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("%q is not a valid date", t)
	default:
		return nil, fmt.Errorf("cannot convert %T to time", v)
	}
}
