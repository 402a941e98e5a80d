package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrOutOfRange reports a numeric value outside its field's bounds, as
// opposed to input that is not a number at all. The simulator replies with
// a different message for each case.
var ErrOutOfRange = errors.New("engine: value out of range")

// countryPrefix is the international dialing prefix clients' numbers are
// normalized to.
const countryPrefix = "+242"

// birthdateLayout is the only accepted textual date format (JJ/MM/AAAA).
const birthdateLayout = "02/01/2006"

// NormalizePhone converts a local-format number to international form:
// a single block of leading zeros is stripped and the country prefix is
// prepended when absent. Normalizing an already-normalized number returns
// it unchanged.
func NormalizePhone(raw string) string {
	p := strings.TrimSpace(raw)
	if strings.HasPrefix(p, countryPrefix) {
		return p
	}
	return countryPrefix + strings.TrimLeft(p, "0")
}

// ParseBirthdate validates a JJ/MM/AAAA date and returns it in ISO form
// (yyyy-mm-dd).
func ParseBirthdate(raw string) (string, error) {
	d, err := time.Parse(birthdateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("engine: parse birthdate %q: %w", raw, err)
	}
	return d.Format("2006-01-02"), nil
}

// ParseMoney parses a monetary amount, accepting embedded space or comma
// thousands separators ("1 000 000" → 1000000).
func ParseMoney(raw string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("engine: parse amount %q: %w", raw, err)
	}
	return v, nil
}

// ParseBoundedInt parses a digits-only integer and checks it against the
// inclusive [min, max] range.
func ParseBoundedInt(raw string, min, max int) (int, error) {
	t := strings.TrimSpace(raw)
	if !isDigits(t) {
		return 0, fmt.Errorf("engine: parse int %q: not a number", raw)
	}
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, fmt.Errorf("engine: parse int %q: %w", raw, err)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("engine: value %d not in [%d, %d]: %w", n, min, max, ErrOutOfRange)
	}
	return n, nil
}

// formatAmount renders a money value rounded to integer currency units with
// space-grouped thousands ("1000000" → "1 000 000").
func formatAmount(v float64) string {
	n := int64(v)
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
