package expiry

import (
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

var ErrFormat = errors.New("expiration must be MM/YY")

// Location resolves an IANA zone name; empty means the process local zone.
func Location(tz string) (*time.Location, error) {
    if tz == "" {
        return time.Local, nil
    }
    return time.LoadLocation(tz)
}

// ParseCardFace splits a card-face "MM/YY" into a month and a four digit year.
// The year is always "20"+YY. The month is not range checked: "13/30" parses
// to month 13, which is what the freshness rule has always seen.
func ParseCardFace(in string) (year int, month int, err error) {
    parts := strings.Split(in, "/")
    if len(parts) != 2 {
        return 0, 0, ErrFormat
    }
    mm, err := strconv.ParseUint(stripPlus(parts[0]), 10, 32)
    if err != nil {
        return 0, 0, fmt.Errorf("month %q: %w", parts[0], ErrFormat)
    }
    yyyy, err := strconv.ParseInt("20"+parts[1], 10, 32)
    if err != nil {
        return 0, 0, fmt.Errorf("year %q: %w", parts[1], ErrFormat)
    }
    return int(yyyy), int(mm), nil
}

// stripPlus drops one leading '+' sign when a digit follows it, so "+1" reads
// as month 1 the way an unsigned integer parse with an optional sign does.
func stripPlus(s string) string {
    if len(s) > 1 && s[0] == '+' && s[1] >= '0' && s[1] <= '9' {
        return s[1:]
    }
    return s
}

// IsExpired reports whether year/month lies strictly before the month of today.
// A card expiring in the current month is still good.
func IsExpired(year, month int, today time.Time) bool {
    if year < today.Year() {
        return true
    }
    return year == today.Year() && month < int(today.Month())
}

// CardFace returns expiry as MM/YY for an issue date + years.
func CardFace(issue time.Time, years int) string {
    y := (issue.Year() + years) % 100
    m := int(issue.Month())
    return fmt.Sprintf("%02d/%02d", m, y)
}

// YYMMToCardFace turns the ISO 8583 DE14 layout (YYMM) into MM/YY.
func YYMMToCardFace(yymm string) (string, error) {
    if err := ValidateYYMM(yymm); err != nil {
        return "", err
    }
    return yymm[2:] + "/" + yymm[:2], nil
}

// ValidateYYMM checks for exactly four digits. The month is left to ParseCardFace.
func ValidateYYMM(yymm string) error {
    if len(yymm) != 4 {
        return fmt.Errorf("expiry must be YYMM (4 digits)")
    }
    for i := 0; i < 4; i++ {
        if yymm[i] < '0' || yymm[i] > '9' {
            return fmt.Errorf("expiry must be digits: YYMM")
        }
    }
    return nil
}
