package api_keys

// KeyRecord is the stored state of one API key. The key string itself is the
// identifier and is not repeated inside the record.
type KeyRecord struct {
	Expired   string `json:"expired"`
	CreatedAt string `json:"created_at"`
	Deleted   bool   `json:"deleted"`
}

// Action is the tag written to the action log.
type Action string

const (
	ActionAdd Action = "add"
	// ActionSoftDelete and ActionHardDelete differ only by one letter; both
	// literals are part of the stored log format.
	ActionSoftDelete Action = "deleted"
	ActionHardDelete Action = "delete"
)

// LogEntry is one line of the append-only action log.
type LogEntry struct {
	Action Action `json:"action"`
	APIKey string `json:"api_key"`
	Time   string `json:"time"`
}

// Status is the outcome of a key lookup.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusExpired Status = "expired"
	StatusDeleted Status = "deleted"
)

// Lookup is the result of Service.Get. Record is nil when Status is invalid.
type Lookup struct {
	Status Status
	Record *KeyRecord
}
