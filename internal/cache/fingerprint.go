package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Fingerprint derives the cache key for a complaint classified against a
// risk table: a sha256 digest over the exact complaint text and the
// canonical JSON serialization of the full table. Struct field order
// makes the serialization stable, so any change to any table field
// changes every fingerprint derived from it. That is the invalidation
// rule: a cached classification is only valid for the taxonomy it was
// classified against.
func Fingerprint(complaint string, riskTable []domain.RiskTableEntry) string {
	table, _ := json.Marshal(riskTable)

	h := sha256.New()
	h.Write([]byte(complaint))
	h.Write([]byte("|"))
	h.Write(table)
	return hex.EncodeToString(h.Sum(nil))
}
