package cards

// IsValidNumber reports whether a card number passes the basic format check
// (13-19 digits after normalization) and the Luhn checksum.
func IsValidNumber(cardNumber string) bool {
	clean := Normalize(cardNumber)

	if len(clean) < 13 || len(clean) > 19 {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}

	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		digit := int(clean[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}
