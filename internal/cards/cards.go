// Package cards holds the test card behavior table used by the payment
// simulator. Card numbers follow the industry convention for gateway test
// cards: each listed number deterministically triggers one outcome, and any
// other syntactically valid number resolves to a delayed success so demos
// never dead-end on an unlisted card.
package cards

import (
	"math/rand"
	"strings"
	"time"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
)

// BehaviorEntry maps a card number to its simulated outcome.
type BehaviorEntry struct {
	Number      string
	Description string
	ErrorCode   domain.ErrorCode
	Kind        domain.BehaviorKind
	Latency     time.Duration
}

// IsSuccess reports whether the entry resolves to a successful payment.
// Timeout cards eventually succeed after their long processing delay.
func (e BehaviorEntry) IsSuccess() bool {
	switch e.Kind {
	case domain.BehaviorSuccess, domain.BehaviorDelayedSuccess, domain.BehaviorTimeout:
		return true
	}
	return false
}

var table = []BehaviorEntry{
	{
		Number:      "4111111111111111",
		Kind:        domain.BehaviorSuccess,
		Description: "Instant success - payment approved immediately",
		Latency:     500 * time.Millisecond,
	},
	{
		Number:      "4000000000000002",
		Kind:        domain.BehaviorDeclined,
		Description: "Declined - insufficient funds",
		Latency:     1000 * time.Millisecond,
		ErrorCode:   domain.ErrorCodeInsufficientFunds,
	},
	{
		Number:      "4000000000000069",
		Kind:        domain.BehaviorExpired,
		Description: "Declined - card expired",
		Latency:     800 * time.Millisecond,
		ErrorCode:   domain.ErrorCodeCardExpired,
	},
	{
		Number:      "4000000000000127",
		Kind:        domain.BehaviorTimeout,
		Description: "Processing timeout (10s delay) then success",
		Latency:     10 * time.Second,
	},
	{
		Number:      "4000000000000341",
		Kind:        domain.BehaviorFraud,
		Description: "Declined - fraud suspected",
		Latency:     2000 * time.Millisecond,
		ErrorCode:   domain.ErrorCodeFraudSuspected,
	},
	{
		Number:      "4000000000000101",
		Kind:        domain.BehaviorDeclined,
		Description: "Declined - generic card decline",
		Latency:     1500 * time.Millisecond,
		ErrorCode:   domain.ErrorCodeCardDeclined,
	},
	{
		Number:      "4000000000000259",
		Kind:        domain.BehaviorDeclined,
		Description: "Declined - invalid card",
		Latency:     500 * time.Millisecond,
		ErrorCode:   domain.ErrorCodeInvalidCard,
	},
}

// Generic delayed-success latency window for unlisted valid numbers.
const (
	genericLatencyMin = 2 * time.Second
	genericLatencySpan = 2 * time.Second
)

// Normalize strips spaces and dashes from a card number.
func Normalize(cardNumber string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, cardNumber)
}

// Lookup resolves a card number to its behavior entry.
//
// Listed test numbers return their fixed entry. Any other valid 16-digit
// number returns a generic delayed-success entry with latency uniformly
// sampled in [2s, 4s). Numbers that fail the format or Luhn check return
// ok=false; the caller surfaces that as invalid_card, not a crash.
func Lookup(cardNumber string) (BehaviorEntry, bool) {
	clean := Normalize(cardNumber)

	for _, entry := range table {
		if entry.Number == clean {
			return entry, true
		}
	}

	if !IsValidNumber(clean) {
		return BehaviorEntry{}, false
	}

	if len(clean) == 16 {
		return BehaviorEntry{
			Number:      clean,
			Kind:        domain.BehaviorDelayedSuccess,
			Description: "Generic success with realistic delay",
			Latency:     genericLatencyMin + time.Duration(rand.Int63n(int64(genericLatencySpan))),
		}, true
	}

	return BehaviorEntry{}, false
}

// TestCardDoc describes a test card for checkout-page documentation.
type TestCardDoc struct {
	Number         string
	Description    string
	ExpectedResult string
}

// AllTestCards lists the documented test cards with their expected results.
func AllTestCards() []TestCardDoc {
	docs := make([]TestCardDoc, 0, len(table))
	for _, entry := range table {
		expected := "Success"
		if !entry.IsSuccess() {
			expected = "Failed: " + string(entry.ErrorCode)
		}
		docs = append(docs, TestCardDoc{
			Number:         entry.Number,
			Description:    entry.Description,
			ExpectedResult: expected,
		})
	}
	return docs
}
