package types

import "time"

// Session is the per-user menu position. Conversion stays ModeNone until a mode button is pressed.
type Session struct {
	UserID     int64     `json:"user_id"`
	Menu       Menu      `json:"menu"`
	Conversion Mode      `json:"conversion,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s Session) HasMode() bool {
	return s.Conversion != ModeNone
}

type SessionStore interface {
	Get(userID int64) (Session, bool)
	Set(session Session)
	Delete(userID int64)
}
