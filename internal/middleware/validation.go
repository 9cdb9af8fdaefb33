package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateConnectionID validates a platform connection ID.
func ValidateConnectionID(id string) error {
	if len(id) == 0 {
		return errors.New("connection ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("connection ID exceeds maximum length")
	}
	return nil
}

// ValidateCompanyID validates a company ID.
func ValidateCompanyID(id string) error {
	if len(id) == 0 {
		return errors.New("company ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("company ID exceeds maximum length")
	}
	return nil
}

// ValidateTitle validates a knowledge base or personality title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
