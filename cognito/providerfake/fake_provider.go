// Package providerfake is an in-memory stand-in for the Cognito user-pool
// API, for tests.
package providerfake

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/google/uuid"

	"github.com/restevean/go-cognito-backend/cognito"
)

var _ cognito.API = (*FakeProvider)(nil)

const (
	// ResetCode is the confirmation code "sent" by ForgotPassword.
	ResetCode = "123456"

	minPasswordLength = 8
	defaultExpiry     = int32(3600)
)

type fakeUser struct {
	password  string
	temporary bool
	resetCode string
}

// FakeProvider mimics the Cognito behaviors the service depends on:
// USER_PASSWORD_AUTH, the NEW_PASSWORD_REQUIRED challenge, and the
// forgot-password flow. Failures are returned as the same exception types
// the SDK produces.
type FakeProvider struct {
	lock     sync.Mutex
	users    map[string]*fakeUser
	sessions map[string]string // challenge session -> username

	// TokenFactory mints the ID token handed out on successful auth. The
	// default returns an opaque string; end-to-end tests inject a factory
	// that signs a real JWT.
	TokenFactory func(username string) (idToken string, expiresIn int32)
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		users:    make(map[string]*fakeUser),
		sessions: make(map[string]string),
		TokenFactory: func(string) (string, int32) {
			return "fake-id-token-" + uuid.New().String(), defaultExpiry
		},
	}
}

// AddUser registers a user. Temporary users must complete the new-password
// challenge before they get tokens.
func (f *FakeProvider) AddUser(username, password string, temporary bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.users[username] = &fakeUser{password: password, temporary: temporary}
}

// Password returns the user's current password, for asserting resets.
func (f *FakeProvider) Password(username string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	if u, ok := f.users[username]; ok {
		return u.password
	}
	return ""
}

func (f *FakeProvider) InitiateAuth(_ context.Context, params *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	username := params.AuthParameters["USERNAME"]
	password := params.AuthParameters["PASSWORD"]

	user, ok := f.users[username]
	if !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("User does not exist.")}
	}
	if user.password != password {
		return nil, &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}

	if user.temporary {
		session := uuid.New().String()
		f.sessions[session] = username
		return &cognitoidentityprovider.InitiateAuthOutput{
			ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
			Session:       aws.String(session),
		}, nil
	}

	idToken, expiresIn := f.TokenFactory(username)
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:   aws.String(idToken),
			ExpiresIn: expiresIn,
		},
	}, nil
}

func (f *FakeProvider) RespondToAuthChallenge(_ context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if params.ChallengeName != types.ChallengeNameTypeNewPasswordRequired {
		return nil, &types.InvalidParameterException{Message: aws.String("Unsupported challenge.")}
	}

	session := aws.ToString(params.Session)
	username, ok := f.sessions[session]
	if !ok || username != params.ChallengeResponses["USERNAME"] {
		return nil, &types.NotAuthorizedException{Message: aws.String("Invalid session for the user.")}
	}

	newPassword := params.ChallengeResponses["NEW_PASSWORD"]
	if len(newPassword) < minPasswordLength {
		return nil, &types.InvalidPasswordException{Message: aws.String("Password did not conform with policy.")}
	}

	user := f.users[username]
	user.password = newPassword
	user.temporary = false
	delete(f.sessions, session)

	idToken, expiresIn := f.TokenFactory(username)
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:   aws.String(idToken),
			ExpiresIn: expiresIn,
		},
	}, nil
}

func (f *FakeProvider) ForgotPassword(_ context.Context, params *cognitoidentityprovider.ForgotPasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	user, ok := f.users[aws.ToString(params.Username)]
	if !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("User does not exist.")}
	}
	user.resetCode = ResetCode
	return &cognitoidentityprovider.ForgotPasswordOutput{}, nil
}

func (f *FakeProvider) ConfirmForgotPassword(_ context.Context, params *cognitoidentityprovider.ConfirmForgotPasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	user, ok := f.users[aws.ToString(params.Username)]
	if !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("User does not exist.")}
	}
	if user.resetCode == "" || user.resetCode != aws.ToString(params.ConfirmationCode) {
		return nil, &types.CodeMismatchException{Message: aws.String("Invalid verification code provided.")}
	}
	newPassword := aws.ToString(params.Password)
	if len(newPassword) < minPasswordLength {
		return nil, &types.InvalidPasswordException{Message: aws.String("Password did not conform with policy.")}
	}
	user.password = newPassword
	user.resetCode = ""
	return &cognitoidentityprovider.ConfirmForgotPasswordOutput{}, nil
}
