// Package intake turns raw admin-pasted signup text into applicant rows.
//
// Two input shapes are accepted: labelled free-text blocks as copied
// from a WhatsApp conversation ("Full Name: ... WhatsApp: ... Email:
// ...") and delimited rows (comma, pipe or tab separated). Rows that
// fail validation are skipped silently; the caller decides whether an
// empty result is an error.
package intake

import (
	"regexp"
	"strings"

	"refsync/entity"
)

var (
	labelledRe   = regexp.MustCompile(`(?i)Full Name:|Email:|WhatsApp:`)
	blockSplitRe = regexp.MustCompile(`(?i)Full Name:`)
	waRe         = regexp.MustCompile(`(?i)(?:WhatsApp|WA)\s*:\s*([\d\-\+]+)`)
	emailRe      = regexp.MustCompile(`(?i)Email\s*:\s*(\S+)`)
	refRe        = regexp.MustCompile(`(?i)Referral\s*:\s*(\S+)`)
	delimRe      = regexp.MustCompile(`[,|\t]`)
)

// Parse extracts applicant rows from raw text. Emails are lowercased,
// a missing referral column becomes the "-" sentinel, and rows without
// an "@" in the email or with a header-looking name ("full name") are
// dropped.
func Parse(raw string) []entity.Applicant {
	raw = strings.ReplaceAll(raw, "*", "")

	var lines []string
	if labelledRe.MatchString(raw) {
		lines = labelledBlocks(raw)
	} else {
		lines = strings.Split(raw, "\n")
	}

	var applicants []entity.Applicant
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := delimRe.Split(line, -1)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			continue
		}

		name := parts[0]
		phone := parts[1]
		email := strings.ToLower(parts[2])
		used := entity.NoReferral
		if len(parts) > 3 && parts[3] != "" {
			used = parts[3]
		}

		if !strings.Contains(email, "@") || strings.EqualFold(name, "full name") {
			continue
		}

		applicants = append(applicants, entity.Applicant{
			FullName:         name,
			Whatsapp:         phone,
			Email:            email,
			UsedReferralCode: used,
		})
	}
	return applicants
}

// labelledBlocks rewrites "Full Name: ..." blocks into delimited rows.
// The block's first line (colons stripped) is the name; WhatsApp,
// Email and Referral fields are matched anywhere inside the block.
func labelledBlocks(raw string) []string {
	var lines []string
	for _, block := range blockSplitRe.Split(raw, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		wa := waRe.FindStringSubmatch(block)
		email := emailRe.FindStringSubmatch(block)
		name := strings.TrimSpace(strings.ReplaceAll(strings.SplitN(block, "\n", 2)[0], ":", ""))
		if name == "" || wa == nil || email == nil {
			continue
		}

		used := entity.NoReferral
		if ref := refRe.FindStringSubmatch(block); ref != nil {
			used = strings.TrimSpace(ref[1])
		}

		lines = append(lines, strings.Join([]string{
			name,
			strings.TrimSpace(wa[1]),
			strings.TrimSpace(email[1]),
			used,
		}, ","))
	}
	return lines
}
