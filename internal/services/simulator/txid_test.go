package simulator_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citypay-ro/ghiseul-gateway/internal/services/simulator"
)

var txidPattern = regexp.MustCompile(`^GHIS-MOCK-\d{13}-[0-9a-f]{8}$`)

func TestNewTransactionID_Format(t *testing.T) {
	id := simulator.NewTransactionID()
	assert.Regexp(t, txidPattern, id)
}

func TestNewTransactionID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := simulator.NewTransactionID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
