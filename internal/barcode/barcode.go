// Package barcode normalizes scanned product codes (JAN/EAN/UPC/GTIN).
package barcode

import (
	"strings"

	"golang.org/x/text/width"
)

// Kind names the symbology family a numeric code belongs to.
type Kind string

const (
	KindEAN8   Kind = "EAN-8"
	KindUPCA   Kind = "UPC-A"
	KindJAN13  Kind = "JAN-13"
	KindGTIN14 Kind = "GTIN-14"
	KindText   Kind = "text"
)

// Normalize trims surrounding whitespace and narrows full-width digits, so
// that codes typed on a Japanese keyboard compare equal to scanned ones.
func Normalize(code string) string {
	return strings.TrimSpace(width.Narrow.String(code))
}

// IsNumeric reports whether code is a non-empty run of ASCII digits.
func IsNumeric(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Classify returns the GS1 family of code by length. Anything that is not
// an 8, 12, 13 or 14 digit number is free text (for example a QR payload).
func Classify(code string) Kind {
	if !IsNumeric(code) {
		return KindText
	}
	switch len(code) {
	case 8:
		return KindEAN8
	case 12:
		return KindUPCA
	case 13:
		return KindJAN13
	case 14:
		return KindGTIN14
	}
	return KindText
}

// ValidCheckDigit verifies the GS1 mod-10 check digit of a numeric code.
func ValidCheckDigit(code string) bool {
	if !IsNumeric(code) || len(code) < 2 {
		return false
	}
	sum := 0
	// Weights alternate 3,1,3,... starting from the digit left of the check digit.
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		sum += int(code[i]-'0') * weight
		weight = 4 - weight
	}
	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}

// Misread reports whether a scanned token looks like a damaged product
// code: numeric, of a GS1 length, with a wrong check digit.
func Misread(code string) bool {
	k := Classify(code)
	if k == KindText {
		return false
	}
	return !ValidCheckDigit(code)
}
