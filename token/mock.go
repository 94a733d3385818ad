package token

import "context"

// Mock identity served when no user pool is configured. A development and
// test affordance only; server startup never selects the mock validator when
// Cognito configuration is present.
const (
	MockSubject  = "mock-user-id"
	MockEmail    = "mock@example.com"
	MockTokenUse = "access"
)

// MockValidator accepts every request, token or not, and answers with a
// fixed identity. It performs no network calls.
type MockValidator struct{}

// NewMockValidator returns the mock validation strategy.
func NewMockValidator() *MockValidator {
	return &MockValidator{}
}

// Validate implements Validator.
func (*MockValidator) Validate(_ context.Context, _ string) (*Claims, error) {
	return &Claims{
		Subject:  MockSubject,
		Email:    MockEmail,
		TokenUse: MockTokenUse,
	}, nil
}
