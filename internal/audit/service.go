// Package audit records authentication events for later review.
package audit

import (
	"log"

	"github.com/abushop/shopfront/internal/database/audit"
	"github.com/abushop/shopfront/internal/entities"
)

const maxErrorMsgLen = 500

// Service provides high-level audit logging. A nil *Service is valid and
// records nothing, so callers do not need to guard every call site.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records an audit event.
func (s *Service) Log(event *entities.AuthEvent) error {
	if s == nil {
		return nil
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background so request handling is
// never blocked on the trail.
func (s *Service) LogAsync(event *entities.AuthEvent) {
	if s == nil {
		return
	}
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogLogin records a login attempt for either credential flow.
func (s *Service) LogLogin(action entities.AuthEventAction, user *entities.User, identifier, ip string, err error) {
	event := &entities.AuthEvent{
		Action:     action,
		Identifier: identifier,
		IPAddress:  ip,
		Status:     entities.AuthStatusSuccess,
	}
	if user != nil {
		event.UserID = &user.ID
	}
	if err != nil {
		event.Status = entities.AuthStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorMsgLen)
	}
	s.LogAsync(event)
}

// LogRegistration records a registration attempt.
func (s *Service) LogRegistration(user *entities.User, identifier, ip string, err error) {
	event := &entities.AuthEvent{
		Action:     entities.AuthActionRegister,
		Identifier: identifier,
		IPAddress:  ip,
		Status:     entities.AuthStatusSuccess,
	}
	if user != nil {
		event.UserID = &user.ID
	}
	if err != nil {
		event.Status = entities.AuthStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorMsgLen)
	}
	s.LogAsync(event)
}

// LogLogout records a session logout.
func (s *Service) LogLogout(userID uint, ip string) {
	event := &entities.AuthEvent{
		Action:    entities.AuthActionLogout,
		IPAddress: ip,
		Status:    entities.AuthStatusSuccess,
	}
	if userID > 0 {
		event.UserID = &userID
	}
	s.LogAsync(event)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
