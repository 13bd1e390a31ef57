// Package verifycode finds short verification codes (one-time passwords,
// sign-up codes, PINs) in the text or HTML body of an email.
//
// Extraction is best effort. Candidates are tried in order of confidence:
//
//  1. a 4-8 character alphanumeric token containing a digit, placed right
//     after a keyword such as "code", "OTP", "PIN" or "验证码";
//  2. a standalone 6-digit number;
//  3. a standalone 4-8 digit number that does not look like a year.
//
// HTML input is reduced to its visible text first, so colour codes in
// style sheets and numbers inside attributes are never returned.
package verifycode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	keywordPattern  = regexp.MustCompile(`(?i)(?:^|[^A-Za-z])(?:verification code|verify code|confirmation code|security code|login code|sign[- ]?in code|one[- ]time (?:pass)?code|passcode|otp|pin|code|验证码|驗證碼|校验码|認証コード|인증번호)(?:\s*(?:is|was|为|是|:|：|=))?[\s\p{P}]{0,10}?([A-Za-z0-9]{4,8})\b`)
	sixDigitPattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{6})(?:[^0-9]|$)`)
	digitsPattern   = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4,8})(?:[^0-9]|$)`)
	tagPattern      = regexp.MustCompile(`<[A-Za-z!/][^>]*>`)
)

// Extract returns the most likely verification code in text. The second
// result is false when nothing code-like was found.
func Extract(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if tagPattern.MatchString(text) {
		text = HTMLToText(text)
	}

	for _, m := range keywordPattern.FindAllStringSubmatch(text, -1) {
		if hasDigit(m[1]) {
			return m[1], true
		}
	}

	if m := sixDigitPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	for _, m := range digitsPattern.FindAllStringSubmatch(text, -1) {
		if !looksLikeYear(m[1]) {
			return m[1], true
		}
	}

	return "", false
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func looksLikeYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1900 && n <= 2099
}
