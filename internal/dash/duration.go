package dash

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNegativeDuration is returned when a negative duration is converted to milliseconds.
	ErrNegativeDuration = errors.New("duration is negative")
	// ErrSubMillisecond is returned when a duration carries a fraction below one millisecond.
	ErrSubMillisecond = errors.New("duration is not a whole number of milliseconds")
)

var durationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.(\d+))?S)?)?$`)

// Duration is an xs:duration value such as "PT1M30.5S".
// Parsing uses integer arithmetic only, so the value is exact down to the nanosecond.
type Duration time.Duration

// ParseDuration parses an ISO 8601 duration restricted to days, hours, minutes and seconds.
// Years and months have no fixed length and are rejected.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "" {
		return 0, fmt.Errorf("invalid duration %q: no components", s)
	}
	if strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("invalid duration %q: empty time section", s)
	}

	var total int64
	units := []struct {
		value string
		unit  time.Duration
	}{
		{m[2], 24 * time.Hour},
		{m[3], time.Hour},
		{m[4], time.Minute},
		{m[5], time.Second},
	}
	for _, u := range units {
		if u.value == "" {
			continue
		}
		n, err := strconv.ParseInt(u.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		part, ok := mulInt64(n, int64(u.unit))
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: out of range", s)
		}
		if total, ok = addInt64(total, part); !ok {
			return 0, fmt.Errorf("invalid duration %q: out of range", s)
		}
	}

	if frac := m[6]; frac != "" {
		ns, err := fractionNanos(frac)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		var ok bool
		if total, ok = addInt64(total, ns); !ok {
			return 0, fmt.Errorf("invalid duration %q: out of range", s)
		}
	}

	if m[1] == "-" {
		total = -total
	}
	return Duration(total), nil
}

// fractionNanos converts the digits after a decimal point into nanoseconds.
func fractionNanos(digits string) (int64, error) {
	if len(digits) > 9 {
		if strings.Trim(digits[9:], "0") != "" {
			return 0, errors.New("precision finer than a nanosecond")
		}
		digits = digits[:9]
	}
	n, err := strconv.ParseInt(digits+strings.Repeat("0", 9-len(digits)), 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (d *Duration) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := ParseDuration(attr.Value)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", attr.Name.Local, err)
	}
	*d = parsed
	return nil
}

// Milliseconds converts the duration to whole milliseconds.
// Negative values and values with a sub-millisecond remainder are rejected
// instead of being truncated.
func (d Duration) Milliseconds() (uint64, error) {
	if d < 0 {
		return 0, ErrNegativeDuration
	}
	if time.Duration(d)%time.Millisecond != 0 {
		return 0, ErrSubMillisecond
	}
	return uint64(time.Duration(d) / time.Millisecond), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

func addInt64(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
