// Package callbacks turns raw callback data into typed route parameters.
//
// Each Matcher owns a literal prefix and a parameter grammar made of decimal
// integers. Matchers never use regular expressions, so a List can be checked
// for overlap with sample inputs instead of relying on registration order.
package callbacks

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Bound is a matcher applied to concrete data, ready to run.
type Bound func(c tele.Context) error

// Matcher recognises one family of callback data strings.
type Matcher struct {
	// Name labels the route in logs, e.g. "rate".
	Name string
	// Examples are inputs the matcher must accept; used for ambiguity checks.
	Examples []string
	bind     func(data string) (Bound, bool)
}

// Bind returns the handler bound to the parameters parsed from data.
func (m Matcher) Bind(data string) (Bound, bool) {
	if m.bind == nil {
		return nil, false
	}
	return m.bind(data)
}

// Int matches "<prefix><n>" where n is a non-negative decimal integer.
func Int(prefix string, h func(c tele.Context, n int64) error) Matcher {
	return Matcher{
		Name:     strings.TrimSuffix(prefix, "_"),
		Examples: []string{prefix + "7"},
		bind: func(data string) (Bound, bool) {
			rest, ok := strings.CutPrefix(data, prefix)
			if !ok {
				return nil, false
			}
			n, ok := parseDigits(rest)
			if !ok {
				return nil, false
			}
			return func(c tele.Context) error { return h(c, n) }, true
		},
	}
}

// IntPair matches "<prefix><a>_<b>".
func IntPair(prefix string, h func(c tele.Context, a, b int64) error) Matcher {
	return Matcher{
		Name:     strings.TrimSuffix(prefix, "_"),
		Examples: []string{prefix + "12_5"},
		bind: func(data string) (Bound, bool) {
			rest, ok := strings.CutPrefix(data, prefix)
			if !ok {
				return nil, false
			}
			left, right, ok := strings.Cut(rest, "_")
			if !ok {
				return nil, false
			}
			a, okA := parseDigits(left)
			b, okB := parseDigits(right)
			if !okA || !okB {
				return nil, false
			}
			return func(c tele.Context) error { return h(c, a, b) }, true
		},
	}
}

// OptionalInt matches "<base>" and "<base>_<n>". ok is false for the bare form.
func OptionalInt(base string, h func(c tele.Context, n int64, ok bool) error) Matcher {
	return Matcher{
		Name:     base,
		Examples: []string{base, base + "_3"},
		bind: func(data string) (Bound, bool) {
			if data == base {
				return func(c tele.Context) error { return h(c, 0, false) }, true
			}
			rest, ok := strings.CutPrefix(data, base+"_")
			if !ok {
				return nil, false
			}
			n, ok := parseDigits(rest)
			if !ok {
				return nil, false
			}
			return func(c tele.Context) error { return h(c, n, true) }, true
		},
	}
}

// IntOrNone matches "<prefix><n>" and "<prefix>none".
func IntOrNone(prefix string, h func(c tele.Context, n int64, none bool) error) Matcher {
	return Matcher{
		Name:     strings.TrimSuffix(prefix, "_"),
		Examples: []string{prefix + "4", prefix + "none"},
		bind: func(data string) (Bound, bool) {
			rest, ok := strings.CutPrefix(data, prefix)
			if !ok {
				return nil, false
			}
			if rest == "none" {
				return func(c tele.Context) error { return h(c, 0, true) }, true
			}
			n, ok := parseDigits(rest)
			if !ok {
				return nil, false
			}
			return func(c tele.Context) error { return h(c, n, false) }, true
		},
	}
}

// List is an ordered set of matchers.
type List []Matcher

// Resolve returns the first matcher accepting data.
func (l List) Resolve(data string) (string, Bound, bool) {
	for _, m := range l {
		if bound, ok := m.Bind(data); ok {
			return m.Name, bound, true
		}
	}
	return "", nil, false
}

// Ambiguities lists every example accepted by more than one matcher,
// plus any example its own matcher rejects.
func (l List) Ambiguities() []string {
	var out []string
	for i, m := range l {
		for _, ex := range m.Examples {
			if _, ok := m.Bind(ex); !ok {
				out = append(out, fmt.Sprintf("%s rejects its example %q", m.Name, ex))
			}
			for j, other := range l {
				if i == j {
					continue
				}
				if _, ok := other.Bind(ex); ok {
					out = append(out, fmt.Sprintf("%q matches both %s and %s", ex, m.Name, other.Name))
				}
			}
		}
	}
	return out
}

// parseDigits accepts only ASCII digits: no sign, no spaces, no empty string.
func parseDigits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Data returns the raw callback data with telebot's unique marker stripped.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
}
