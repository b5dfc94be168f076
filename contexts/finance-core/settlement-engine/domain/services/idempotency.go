package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SettlementKey derives the idempotency key handed to the settlement
// provider for one pending->sent attempt. The key is a pure function of
// (payoutID, version): a retry against the same pre-state produces the
// same key, so the provider can deduplicate; any version change yields a
// new key.
func SettlementKey(payoutID string, version int64) string {
	sum := sha256.Sum256([]byte(payoutID + ":" + strconv.FormatInt(version, 10)))
	return hex.EncodeToString(sum[:])
}
