package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActivityID identifies a business activity. Clients send either numbers or strings.
type ActivityID string

// UnmarshalJSON accepts JSON numbers and strings.
func (a *ActivityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*a = ActivityID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("activity id must be a string or number: %w", err)
	}

	*a = ActivityID(n.String())

	return nil
}
