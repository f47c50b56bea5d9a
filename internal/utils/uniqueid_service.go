package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UniqueIDService provides ID generation functionality
type UniqueIDService struct{}

// NewUniqueIDService creates a new UniqueIDService
func NewUniqueIDService() *UniqueIDService {
	return &UniqueIDService{}
}

// GenerateID creates an ID with the following pattern:
//   - First character is the provided prefix (e.g., 't' for task)
//   - Followed by random alphanumeric [0-9a-z] up to the requested length
//
// Example output with prefix 't' and length 13: t12abc345xy9q
func (s *UniqueIDService) GenerateID(prefix string, length int) (string, error) {
	alnum := "0123456789abcdefghijklmnopqrstuvwxyz"

	rest, err := gonanoid.Generate(alnum, length-len(prefix))
	if err != nil {
		return "", fmt.Errorf("failed to generate alphanumeric part: %w", err)
	}

	return prefix + rest, nil
}

// GenerateTaskID creates a char(13) task primary key.
func (s *UniqueIDService) GenerateTaskID() (string, error) {
	return s.GenerateID("t", 13)
}

// GenerateUserID creates a char(12) user primary key.
func (s *UniqueIDService) GenerateUserID() (string, error) {
	return s.GenerateID("u", 12)
}

// GenerateStepID creates an ID for steps added through the editor.
func (s *UniqueIDService) GenerateStepID() (string, error) {
	id, err := s.GenerateID("s", 13)
	if err != nil {
		return "", err
	}
	return "step-" + id, nil
}

// GenerateResetCode creates a 6-digit password reset code.
func (s *UniqueIDService) GenerateResetCode() (string, error) {
	digits := "0123456789"

	code, err := gonanoid.Generate(digits, 6)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}

	return code, nil
}

// Global instance of UniqueIDService
var UniqueIDSvc = NewUniqueIDService()
