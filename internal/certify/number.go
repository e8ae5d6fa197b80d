package certify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix starts every certificate number unless configured otherwise.
const DefaultPrefix = "ACAD"

// Number composes the human-readable certificate label
// <prefix>-<course>-<module>-<user>-<unix>-<6 hex>. It is not a uniqueness
// guarantee; the store's unique constraints are.
func Number(prefix string, courseID, moduleID int64, userID string, issuedAt time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%d-%s-%d-%s", prefix, courseID, moduleID, userID, issuedAt.Unix(), suffix)
}
