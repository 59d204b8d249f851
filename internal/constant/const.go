package constant

const (
	DefaultInstanceName = "key-ledger"
	DefaultPort         = "3000"

	DefaultDataFile = "data.json"
	DefaultLogFile  = "log.json"
	DefaultDBPath   = "key-ledger.db"

	// EnvConfigFile points at an optional YAML file with configuration overrides.
	EnvConfigFile = "CONFIG_FILE"
)

// Envelope statuses returned in every JSON response body.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusValid   = "valid"
	StatusInvalid = "invalid"
	StatusExpired = "expired"
	StatusDeleted = "deleted"
)
