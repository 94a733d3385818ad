// Package auth shapes the local authentication contract around the Cognito
// user pool: login, the first-login password challenge, and password resets.
// Credentials never touch this process beyond being forwarded to the pool.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog/log"

	"github.com/restevean/go-cognito-backend/cognito"
)

// LoginResult is the outcome of a successful credential check. When the pool
// demands a password change first, RequiresNewPassword is set and no token is
// issued.
type LoginResult struct {
	Token               string
	ExpiresIn           time.Duration
	RequiresNewPassword bool
}

// AuthenticationService delegates credential checks and password mutations to
// the Cognito user pool and translates its failures into this package's
// sentinel errors.
type AuthenticationService struct {
	provider cognito.API
	clientID string
}

// NewAuthenticationService builds the service for the given app client.
func NewAuthenticationService(provider cognito.API, clientID string) (*AuthenticationService, error) {
	if provider == nil {
		return nil, errors.New("[NewAuthenticationService] provider is required")
	}
	if clientID == "" {
		return nil, errors.New("[NewAuthenticationService] clientID is required")
	}
	return &AuthenticationService{provider: provider, clientID: clientID}, nil
}

// Login exchanges email and password for an ID token via the pool's
// USER_PASSWORD_AUTH flow.
func (s *AuthenticationService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	out, err := s.provider.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, classifyProviderError("InitiateAuth", err)
	}

	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return &LoginResult{RequiresNewPassword: true}, nil
	}

	return resultFromAuthentication(out.AuthenticationResult)
}

// SetNewPassword completes the NEW_PASSWORD_REQUIRED challenge for a user
// logging in with a temporary password.
func (s *AuthenticationService) SetNewPassword(ctx context.Context, email, temporaryPassword, newPassword string) (*LoginResult, error) {
	out, err := s.provider.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": temporaryPassword,
		},
	})
	if err != nil {
		return nil, classifyProviderError("InitiateAuth", err)
	}

	if out.ChallengeName != types.ChallengeNameTypeNewPasswordRequired {
		return nil, fmt.Errorf("%w: no password change pending", ErrInvalidCredentials)
	}

	challenge, err := s.provider.RespondToAuthChallenge(ctx, &cognitoidentityprovider.RespondToAuthChallengeInput{
		ClientId:      aws.String(s.clientID),
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		Session:       out.Session,
		ChallengeResponses: map[string]string{
			"USERNAME":     email,
			"NEW_PASSWORD": newPassword,
		},
	})
	if err != nil {
		return nil, classifyProviderError("RespondToAuthChallenge", err)
	}

	return resultFromAuthentication(challenge.AuthenticationResult)
}

// RequestPasswordReset asks the pool to send a verification code. It always
// acknowledges, even for unknown accounts, so the endpoint cannot be used to
// enumerate users.
func (s *AuthenticationService) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := s.provider.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: aws.String(s.clientID),
		Username: aws.String(email),
	})
	if err != nil {
		if cognito.IsAPIError(err) {
			log.Debug().Str("code", cognito.ErrorCode(err)).Msg("forgot password request swallowed")
			return nil
		}
		return fmt.Errorf("[RequestPasswordReset] ForgotPassword: %w", err)
	}
	return nil
}

// ConfirmPasswordReset completes the reset with the emailed code.
func (s *AuthenticationService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	_, err := s.provider.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(s.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	})
	if err != nil {
		return classifyProviderError("ConfirmForgotPassword", err)
	}
	return nil
}

func resultFromAuthentication(result *types.AuthenticationResultType) (*LoginResult, error) {
	if result == nil || aws.ToString(result.IdToken) == "" {
		return nil, errors.New("provider returned no token")
	}
	return &LoginResult{
		Token:     aws.ToString(result.IdToken),
		ExpiresIn: time.Duration(result.ExpiresIn) * time.Second,
	}, nil
}

// classifyProviderError maps Cognito service exceptions onto this package's
// sentinel errors. Unknown failures are wrapped untranslated; the HTTP layer
// answers with a generic message either way.
func classifyProviderError(op string, err error) error {
	switch cognito.ErrorCode(err) {
	case "NotAuthorizedException",
		"UserNotFoundException",
		"UserNotConfirmedException",
		"PasswordResetRequiredException":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, cognito.ErrorCode(err))
	case "InvalidPasswordException", "InvalidParameterException":
		return fmt.Errorf("%w: %s", ErrPolicyViolation, cognito.ErrorCode(err))
	case "CodeMismatchException", "ExpiredCodeException":
		return fmt.Errorf("%w: %s", ErrInvalidCode, cognito.ErrorCode(err))
	default:
		return fmt.Errorf("[%s] %w", op, err)
	}
}
