package drip

import "fmt"

// Validate checks universal constraints on Request. Backends may apply
// additional backend-specific validation.
func (r Request) Validate() error {
	if r.ThreadID == "" {
		return fmt.Errorf("thread id is required: %w", ErrValidation)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	if last := r.Messages[len(r.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("last message must be from user, got %s: %w", last.Role, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a message has a known role.
func ValidateMessage(m Message) error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleTool:
		return nil
	default:
		return fmt.Errorf("unknown role %q: %w", m.Role, ErrValidation)
	}
}
