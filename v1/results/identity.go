package results

import (
	"strings"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

const sqlIdentityPrefix = "sql:"

// BrowseIdentity identifies results of browsing ref: "schema.table".
func BrowseIdentity(ref database.TableRef) string {
	return ref.ID()
}

// SQLIdentity identifies results of free SQL: "sql:<text>".
func SQLIdentity(text string) string {
	return sqlIdentityPrefix + strings.TrimSpace(text)
}

// IsSQLIdentity reports whether id was produced by SQLIdentity.
func IsSQLIdentity(id string) bool {
	return strings.HasPrefix(id, sqlIdentityPrefix)
}

// ShouldUseCachedResults decides reuse purely by identity: reuse iff there
// are results and they belong to the selected table.
func ShouldUseCachedResults(hasResults bool, cachedTableID, selectedTableID string) bool {
	return hasResults && cachedTableID != "" && cachedTableID == selectedTableID
}
