package entities

import "time"

type AuthEventAction string

const (
	AuthActionSessionLogin AuthEventAction = "session_login"
	AuthActionTokenLogin   AuthEventAction = "token_login"
	AuthActionLogout       AuthEventAction = "logout"
	AuthActionRegister     AuthEventAction = "register"
)

type AuthEventStatus string

const (
	AuthStatusSuccess AuthEventStatus = "success"
	AuthStatusFailed  AuthEventStatus = "failed"
)

// AuthEvent is one entry in the authentication audit trail. Identifier is
// the submitted login identifier, recorded even when no account matches.
type AuthEvent struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     *uint           `gorm:"index" json:"user_id,omitempty"`
	Action     AuthEventAction `gorm:"index;size:50" json:"action"`
	Identifier string          `gorm:"size:254" json:"identifier,omitempty"`
	IPAddress  string          `gorm:"size:45" json:"ip_address,omitempty"`
	Status     AuthEventStatus `gorm:"size:20" json:"status"`
	ErrorMsg   string          `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

func (AuthEvent) TableName() string {
	return "auth_events"
}
