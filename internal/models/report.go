package models

import (
	"encoding/json"
	"time"
)

// Report is a persisted analysis result owned by a user.
//
// Data holds the normalized routine as JSON. It is stored as an opaque blob so that older reports keep rendering
// when the display schema evolves.
type Report struct {
	ID        string          `db:"id"         json:"id"`
	UserID    []byte          `db:"user_id"    json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	Data      json.RawMessage `db:"data"       json:"data"`
}
