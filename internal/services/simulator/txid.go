package simulator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewTransactionID generates a transaction id of the form
// GHIS-MOCK-{unix_millis}-{8 hex chars}: sortable by creation time, with
// random bytes preventing collisions within the same millisecond.
func NewTransactionID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return fmt.Sprintf("GHIS-MOCK-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
