package config

import (
	"fmt"
	"strings"
)

var (
	StorageModeFile     StorageMode = "file"
	StorageModeSQLite   StorageMode = "sqlite"
	StorageModePostgres StorageMode = "postgres"
)

// StorageMode selects the backend that persists keys and the action log.
type StorageMode string

func (m *StorageMode) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(StorageModeFile):
		*m = StorageModeFile
	case string(StorageModeSQLite):
		*m = StorageModeSQLite
	case string(StorageModePostgres), "postgresql", "external":
		*m = StorageModePostgres
	default:
		return fmt.Errorf("unknown storage mode %q (valid: %s, %s, %s)", s, StorageModeFile, StorageModeSQLite, StorageModePostgres)
	}
	return nil
}

func (m *StorageMode) String() string {
	switch *m {
	case StorageModeFile, StorageModeSQLite, StorageModePostgres:
		return string(*m)
	default:
		return "unknown"
	}
}
