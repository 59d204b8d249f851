package api_keys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AddRequest is the body of POST /api/add, accepted as JSON or as a form.
type AddRequest struct {
	APIKey      LooseString `json:"api_key" form:"api_key"`
	ExpiredTime LooseString `json:"expired_time" form:"expired_time"`
}

// LooseString accepts a JSON string, number or boolean. Numbers keep their
// decimal text, so an epoch-millisecond expiry stays parseable. The falsy
// values "", 0, false and null all decode to the empty string, which the
// service rejects as missing. Objects and arrays are a decode error.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	case 't':
		*s = "true"
	case 'f', 'n':
		*s = ""
	case '{', '[':
		return fmt.Errorf("expected a string or number, got %s", data)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		if f == 0 {
			*s = ""
			return nil
		}
		*s = LooseString(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// Envelope is the JSON body of every /api response except the two list
// endpoints. The HTTP status is always 200; Status carries the outcome.
type Envelope struct {
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	Data        *KeyRecord `json:"data,omitempty"`
	ExpiredTime string     `json:"expired_time,omitempty"`
}

const (
	MsgFieldsRequired = "API key and expired time are required!"
	MsgKeyExists      = "API key already exists!"
	MsgKeyAdded       = "API key added!"
	MsgKeyNotFound    = "API key not found!"
	MsgKeyDeleted     = "API key has been marked as deleted!"
	MsgKeyExpired     = "API key has expired!"
	MsgMarkedDeleted  = "API key marked as deleted!"
	MsgKeyRemoved     = "API key deleted!"
)
