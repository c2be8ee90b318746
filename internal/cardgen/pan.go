package cardgen

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Digits extracts the decimal digits of s in order. Any other rune is skipped.
func Digits(s string) []int {
	out := make([]int, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, int(s[i]-'0'))
		}
	}
	return out
}

// DigitString keeps only the ASCII digits of s, the same digits Digits yields.
func DigitString(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

// luhnSum walks body right to left, doubling every digit at an even
// position of that walk and folding the doubled value to a single digit.
func luhnSum(body []int) int {
	sum := 0
	for i, pos := len(body)-1, 0; i >= 0; i, pos = i-1, pos+1 {
		d := body[i]
		if pos%2 == 0 {
			d *= 2
		}
		sum += d/10 + d%10
	}
	return sum
}

// CheckDigit returns the Luhn check digit for body: (sum*9) mod 10.
func CheckDigit(body []int) int {
	return (luhnSum(body) * 9) % 10
}

// LuhnValid reports whether the last digit is the check digit of the rest.
func LuhnValid(digits []int) bool {
	if len(digits) < 2 {
		return false
	}
	n := len(digits) - 1
	return CheckDigit(digits[:n]) == digits[n]
}

// GeneratePAN builds a Luhn-valid PAN of totalLen digits starting with bin.
// sequence, when set, overrides the trailing body digits before the check digit.
func GeneratePAN(bin string, totalLen int, sequence string) (string, error) {
	if err := ValidateBIN(bin); err != nil {
		return "", err
	}
	if totalLen < 12 || totalLen > 19 {
		return "", fmt.Errorf("total length must be 12..19")
	}
	fill := totalLen - 1 - len(bin)
	if fill <= 0 {
		return "", fmt.Errorf("bin too long: %s", bin)
	}
	seq := strings.TrimSpace(sequence)
	if seq != "" {
		if !IsDigits(seq) {
			return "", fmt.Errorf("sequence must be numeric")
		}
		if len(seq) > fill {
			return "", fmt.Errorf("sequence length %d exceeds %d", len(seq), fill)
		}
	}

	digitsPart, err := randomDigits(fill)
	if err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	b := []byte(digitsPart)
	if seq != "" {
		copy(b[fill-len(seq):], seq)
	}

	body := bin + string(b)
	return body + string('0'+byte(CheckDigit(Digits(body)))), nil
}

// randomDigits uses rejection sampling so every digit is equally likely.
func randomDigits(count int) (string, error) {
	if count <= 0 {
		return "", nil
	}
	const threshold = 250 // 256 - (256 % 10)
	var sb strings.Builder
	sb.Grow(count)
	buf := make([]byte, 64)
	for sb.Len() < count {
		n, err := rand.Read(buf)
		if err != nil {
			return "", err
		}
		for i := 0; i < n && sb.Len() < count; i++ {
			if buf[i] < threshold {
				sb.WriteByte('0' + (buf[i] % 10))
			}
		}
	}
	return sb.String(), nil
}

// ValidateBIN accepts a 1 to 8 digit issuer prefix.
func ValidateBIN(bin string) error {
	if bin == "" {
		return fmt.Errorf("bin is required")
	}
	if !IsDigits(bin) {
		return fmt.Errorf("bin must contain digits only")
	}
	if len(bin) > 8 {
		return fmt.Errorf("bin must be at most 8 digits")
	}
	return nil
}

func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func LastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// MaskPAN keeps the first six and last four digits when the PAN is long enough.
func MaskPAN(pan string) string {
	cleaned := NormalizePAN(pan)
	n := len(cleaned)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	if n < 10 {
		return strings.Repeat("*", n-4) + cleaned[n-4:]
	}
	return cleaned[:6] + strings.Repeat("*", n-10) + cleaned[n-4:]
}

// NormalizePAN strips spaces, tabs and dashes.
func NormalizePAN(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		default:
			return r
		}
	}, s)
}
