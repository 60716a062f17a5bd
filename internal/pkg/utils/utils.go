package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUID generates a UUID v4 string.
func GenerateUUID() string {
	return uuid.New().String()
}

// Clock returns the current time. Handlers take one so tests can pin "now".
type Clock func() time.Time

// SystemClock is the wall clock truncated to the precision transactions are stored with.
func SystemClock() time.Time {
	return Truncate(time.Now())
}

// Truncate drops sub-second precision and normalizes to UTC.
// Stored datetimes keep whole seconds, so every value that is echoed back
// to the gateway must be truncated before it is persisted.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Milliseconds converts a time to epoch milliseconds.
func Milliseconds(t time.Time) int64 {
	return t.UnixMilli()
}

// OptionalMilliseconds converts a nullable datetime to epoch milliseconds.
func OptionalMilliseconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// OptionalSeconds converts a nullable datetime to epoch seconds.
func OptionalSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	s := t.Unix()
	return &s
}

// FromMilliseconds converts epoch milliseconds to a UTC datetime.
func FromMilliseconds(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseInt64 converts a decoded JSON value into an int64.
// Integral JSON numbers and base-10 integer strings are accepted; anything
// else (fractions, booleans, objects, empty strings) is rejected.
func ParseInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(t)
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// StringValue renders an account value as a string key.
// Numbers arrive as json.Number or float64 depending on the decoder.
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if i, ok := floatToInt64(t); ok {
			return strconv.FormatInt(i, 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// FormatAmount renders an amount in tiyin as sums with two decimals and
// comma-separated thousands, e.g. 1234500 -> "12,345.00".
func FormatAmount(tiyin int64) string {
	s := decimal.New(tiyin, -2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
