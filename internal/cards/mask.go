package cards

import "strings"

// MaskNumber hides all but the last four digits, grouped in blocks of four:
// "**** **** **** 1111".
func MaskNumber(cardNumber string) string {
	clean := Normalize(cardNumber)

	if len(clean) < 4 {
		return "****"
	}

	last4 := clean[len(clean)-4:]
	masked := strings.Repeat("*", len(clean)-4)

	var b strings.Builder
	for i, r := range masked {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte(' ')
	b.WriteString(last4)
	return strings.TrimSpace(b.String())
}

// Last4 returns the last four digits of a card number.
func Last4(cardNumber string) string {
	clean := Normalize(cardNumber)
	if len(clean) < 4 {
		return clean
	}
	return clean[len(clean)-4:]
}

// Brand guesses the card brand from the number prefix.
func Brand(cardNumber string) string {
	clean := Normalize(cardNumber)

	switch {
	case strings.HasPrefix(clean, "4"):
		return "Visa"
	case len(clean) >= 2 && clean[0] == '5' && clean[1] >= '1' && clean[1] <= '5':
		return "Mastercard"
	case strings.HasPrefix(clean, "34"), strings.HasPrefix(clean, "37"):
		return "American Express"
	case strings.HasPrefix(clean, "6011"), strings.HasPrefix(clean, "65"):
		return "Discover"
	default:
		return "Unknown"
	}
}
