// Package slotid derives stable slot identifiers. Two runs over identical
// input always produce identical slot ids, which in turn keeps any hash
// computed over the full input reproducible between reruns.
package slotid

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Derive returns a stable slot id for (demandID, requirementID, shiftCode,
// position, date). Two calls with the same inputs always return the same id.
func Derive(demandID, requirementID, shiftCode string, position int, date time.Time) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s", demandID, requirementID, shiftCode, position, date.Format("2006-01-02"))
	return fmt.Sprintf("%s-%s-%s-P%d-%s-%08x", demandID, requirementID, shiftCode, position, date.Format("20060102"), h.Sum32())
}
