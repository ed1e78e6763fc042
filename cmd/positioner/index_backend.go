package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/persistence/indexdb"
)

// openRuntimeIndex opens the read-model index selected by POSITIONER_INDEX_BACKEND
// (sqlite by default). A nil index means indexing is off.
func openRuntimeIndex(dbPath string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("POSITIONER_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		if strings.TrimSpace(dbPath) == "" {
			return nil, nil
		}
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported POSITIONER_INDEX_BACKEND: %s", backend)
	}
}
