// Package refcode builds deterministic referral codes from applicant
// attributes and a per-day sequence number.
//
// The function performs no collision check itself: uniqueness is the
// caller's concern, guaranteed by incrementing the sequence per
// applicant per day and by the intake guard rejecting emails that are
// already registered.
package refcode

import (
	"fmt"
	"strings"
	"time"
)

// noReferral is the sentinel an applicant row carries when no referral
// code was used at signup.
const noReferral = "-"

// Generate synthesizes a code as AA + WW + R + MMDDYY + N:
// first two letters of the email (padded with X), last two digits of
// the phone (padded with 0), a referral-presence flag (1 = referred,
// 2 = organic), the date, and the caller-supplied daily sequence
// number without zero-padding.
func Generate(email, phone, usedRef string, seq int, now time.Time) string {
	letters := strings.Map(keepLetter, email)
	if len(letters) > 2 {
		letters = letters[:2]
	}
	for len(letters) < 2 {
		letters += "X"
	}

	digits := strings.Map(keepDigit, phone)
	if len(digits) > 2 {
		digits = digits[len(digits)-2:]
	}
	for len(digits) < 2 {
		digits = "0" + digits
	}

	flag := "2"
	if used := strings.TrimSpace(usedRef); used != "" && used != noReferral {
		flag = "1"
	}

	return fmt.Sprintf("%s%s%s%s%d", strings.ToUpper(letters), digits, flag, now.Format("010206"), seq)
}

func keepLetter(r rune) rune {
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return r
	}
	return -1
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
