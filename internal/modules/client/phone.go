// README: Phone classifier: one place that decides short-id / fixed-line / mobile and normalizes mobiles.
package client

import (
	"fmt"
	"strings"
)

type PhoneFormat string

const (
	FormatShortID   PhoneFormat = "short_id"
	FormatFixedLine PhoneFormat = "fixed_line"
	FormatMobile    PhoneFormat = "mobile"
)

const (
	shortIDLen   = 5
	fixedLineLen = 7
	legacyIDLen  = 9
	maxPhoneLen  = 15
)

// Phone is a classified operator input.
type Phone struct {
	Raw    string
	Digits string
	Format PhoneFormat
	// Full is the WhatsApp-style number with country code; set for mobiles only.
	Full string
}

// LegacyID is the last nine digits of the full number, the id used by older mobile records.
func (p Phone) LegacyID() string {
	if len(p.Full) <= legacyIDLen {
		return p.Full
	}
	return p.Full[len(p.Full)-legacyIDLen:]
}

// ParsePhone strips separators and classifies by length.
func ParsePhone(raw, countryCode string) (Phone, error) {
	digits, err := onlyDigits(raw)
	if err != nil {
		return Phone{}, err
	}
	p := Phone{Raw: raw, Digits: digits}
	switch n := len(digits); {
	case n == shortIDLen:
		p.Format = FormatShortID
	case n == fixedLineLen:
		p.Format = FormatFixedLine
	case n > fixedLineLen && n <= maxPhoneLen:
		p.Format = FormatMobile
		p.Full = normalizeMobile(digits, countryCode)
	default:
		return Phone{}, fmt.Errorf("%w: %q has %d digits", ErrInvalidPhone, raw, n)
	}
	return p, nil
}

// normalizeMobile replaces a leading trunk 0 with the country code; a bare nine-digit
// national number gets the country code prepended; anything else is taken as already full.
func normalizeMobile(digits, countryCode string) string {
	switch {
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case len(digits) == legacyIDLen:
		return countryCode + digits
	default:
		return digits
	}
}

func onlyDigits(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		case r == '+' && i == 0:
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}
	return b.String(), nil
}
