// Package tz resolves timezone rules into *time.Location.
//
// Three forms are accepted: "UTC" (or empty), zone database names such as "Europe/Paris", and POSIX TZ rules such as
// "CET-1CEST,M3.5.0,M10.5.0/3" as used by newlib and glibc. POSIX rules are handed to the Go runtime as the footer of
// a TZif blob with no transitions, so the runtime evaluates the DST rule for every instant.
package tz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRule = errors.New("tz: invalid POSIX TZ rule")
	ErrUnknownZone = errors.New("tz: unknown zone")
)

func Load(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if isRule(name) {
		return loadRule(name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownZone, name, err)
	}
	return loc, nil
}

// isRule reports whether name looks like a POSIX rule rather than a zone database name. A rule is a quoted or
// alphabetic zone name followed by its offset, or anything with a comma; database names have neither. Bare
// abbreviations such as "EST" have no offset and resolve through the zone database.
func isRule(name string) bool {
	if strings.HasPrefix(name, "<") || strings.Contains(name, ",") {
		return true
	}
	i := 0
	for i < len(name) && isAlpha(rune(name[i])) {
		i++
	}
	return i < len(name) && (name[i] == '+' || name[i] == '-' || isDigit(rune(name[i])))
}

func loadRule(rule string) (*time.Location, error) {
	std, offset, err := parseRule(rule)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, err)
	}
	loc, err := time.LoadLocationFromTZData(rule, tzif(std, offset, rule))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidRule, rule, err)
	}
	return loc, nil
}

// parseRule validates rule and returns the standard zone abbreviation and its offset east of UTC in seconds.
func parseRule(rule string) (string, int, error) {
	std, rest, err := zoneName(rule)
	if err != nil {
		return "", 0, err
	}
	west, rest, err := zoneOffset(rest)
	if err != nil {
		return "", 0, err
	}
	if rest == "" {
		return std, -west, nil
	}

	_, rest, err = zoneName(rest)
	if err != nil {
		return "", 0, err
	}
	if rest != "" && rest[0] != ',' {
		if _, rest, err = zoneOffset(rest); err != nil {
			return "", 0, err
		}
	}
	if rest == "" {
		return std, -west, nil
	}

	parts := strings.Split(rest[1:], ",")
	if rest[0] != ',' || len(parts) != 2 {
		return "", 0, fmt.Errorf("want two transition rules, got %q", rest)
	}
	for _, p := range parts {
		if err := transition(p); err != nil {
			return "", 0, err
		}
	}
	return std, -west, nil
}

func zoneName(s string) (string, string, error) {
	if strings.HasPrefix(s, "<") {
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", "", errors.New("unterminated quoted zone name")
		}
		name := s[1:end]
		if len(name) < 3 {
			return "", "", fmt.Errorf("zone name %q too short", name)
		}
		for _, c := range name {
			if !isAlpha(c) && !isDigit(c) && c != '+' && c != '-' {
				return "", "", fmt.Errorf("bad character %q in zone name", c)
			}
		}
		return name, s[end+1:], nil
	}

	i := 0
	for i < len(s) && isAlpha(rune(s[i])) {
		i++
	}
	if i < 3 {
		return "", "", fmt.Errorf("zone name %q too short", s[:i])
	}
	return s[:i], s[i:], nil
}

// zoneOffset parses [+-]hh[:mm[:ss]] and returns seconds west of UTC.
func zoneOffset(s string) (int, string, error) {
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	secs, rest, err := clock(s, 24)
	if err != nil {
		return 0, "", err
	}
	return sign * secs, rest, nil
}

// clock parses hh[:mm[:ss]] with hh at most maxHours.
func clock(s string, maxHours int) (int, string, error) {
	var fields [3]int
	n := 0
	for n < 3 {
		v, rest, ok := number(s)
		if !ok {
			if n == 0 {
				return 0, "", fmt.Errorf("missing offset in %q", s)
			}
			return 0, "", fmt.Errorf("bad time in %q", s)
		}
		fields[n] = v
		n++
		s = rest
		if s == "" || s[0] != ':' {
			break
		}
		s = s[1:]
	}
	if fields[0] > maxHours || fields[1] > 59 || fields[2] > 59 {
		return 0, "", fmt.Errorf("time %02d:%02d:%02d out of range", fields[0], fields[1], fields[2])
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], s, nil
}

// transition validates one of Jn, n or Mm.w.d, optionally followed by /time.
func transition(s string) error {
	date, at, hasTime := strings.Cut(s, "/")
	switch {
	case strings.HasPrefix(date, "M"):
		f := strings.Split(date[1:], ".")
		if len(f) != 3 {
			return fmt.Errorf("bad month rule %q", date)
		}
		limits := [3][2]int{{1, 12}, {1, 5}, {0, 6}}
		for i, v := range f {
			n, rest, ok := number(v)
			if !ok || rest != "" || n < limits[i][0] || n > limits[i][1] {
				return fmt.Errorf("bad month rule %q", date)
			}
		}
	case strings.HasPrefix(date, "J"):
		n, rest, ok := number(date[1:])
		if !ok || rest != "" || n < 1 || n > 365 {
			return fmt.Errorf("bad julian day %q", date)
		}
	default:
		n, rest, ok := number(date)
		if !ok || rest != "" || n > 365 {
			return fmt.Errorf("bad day %q", date)
		}
	}
	if hasTime {
		if at != "" && (at[0] == '+' || at[0] == '-') {
			at = at[1:]
		}
		_, rest, err := clock(at, 167)
		if err != nil {
			return err
		}
		if rest != "" {
			return fmt.Errorf("trailing %q after transition time", rest)
		}
	}
	return nil
}

func number(s string) (int, string, bool) {
	i, n := 0, 0
	for i < len(s) && isDigit(rune(s[i])) {
		n = n*10 + int(s[i]-'0')
		i++
		if n > 1<<16 {
			return 0, "", false
		}
	}
	return n, s[i:], i > 0
}

func isAlpha(c rune) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c rune) bool { return c >= '0' && c <= '9' }

// tzif builds a version 2 TZif blob with a single local time type and no transitions. The footer carries rule.
func tzif(abbr string, offset int, rule string) []byte {
	var b bytes.Buffer
	chars := append([]byte(abbr), 0)

	// The version 1 and version 2 data blocks are identical when there are no transitions or leap seconds.
	for i := 0; i < 2; i++ {
		b.WriteString("TZif2")
		b.Write(make([]byte, 15))
		// isutcnt, isstdcnt, leapcnt, timecnt, typecnt, charcnt
		for _, n := range []uint32{0, 0, 0, 0, 1, uint32(len(chars))} {
			_ = binary.Write(&b, binary.BigEndian, n)
		}
		_ = binary.Write(&b, binary.BigEndian, int32(offset))
		b.WriteByte(0) // isdst
		b.WriteByte(0) // abbreviation index
		b.Write(chars)
	}

	b.WriteByte('\n')
	b.WriteString(rule)
	b.WriteByte('\n')
	return b.Bytes()
}
