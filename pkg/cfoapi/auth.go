package cfoapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/session"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

// ErrAuthFailed is returned when the backend rejects credentials or a
// registration. The wrapped message is the backend's.
var ErrAuthFailed = errors.New("authentication failed")

const (
	msgRegistered     = "Account created successfully! Please login."
	msgDemoRegistered = "Account created! Please login."
)

type LoginInput struct {
	WorkEmail string
	Password  string
	JobTitle  string
}

// Login stores the access token on success. When the backend cannot be
// reached a demo session with DemoToken is stored instead.
func (a *FinancialAPI) Login(ctx context.Context, in LoginInput) (*session.Session, error) {
	if in.WorkEmail == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: Email and password are required", ErrAuthFailed)
	}

	desc := apiclient.NewRequest(http.MethodPost, PathLogin).
		WithBody(model.LoginRequest{WorkEmail: in.WorkEmail, Password: in.Password})
	res, err := a.client.Do(ctx, EndpointLogin, desc)

	user := session.User{WorkEmail: in.WorkEmail, JobTitle: in.JobTitle}
	if err != nil {
		if !demoEligible(ctx, err) {
			return nil, authError(err, "Login failed")
		}
		log.Warn().Err(err).Str("reason", string(res.Reason)).Msg("API not available, using demo mode")
		user.Demo = true
		return a.saveSession(ctx, DemoToken, user)
	}

	var body model.LoginResponse
	if err := res.Payload.Decode(&body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		msg := body.Message
		if msg == "" {
			msg = "Login failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	}
	return a.saveSession(ctx, body.AccessToken, user)
}

type RegisterInput struct {
	FullName    string
	WorkEmail   string
	Password    string
	JobTitle    string
	CompanyName string
}

// RegisterResult carries the message to show the user.
type RegisterResult struct {
	Message string
	Demo    bool
}

func (a *FinancialAPI) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	desc := apiclient.NewRequest(http.MethodPost, PathRegister).WithBody(model.RegisterRequest{
		FullName:    in.FullName,
		WorkEmail:   in.WorkEmail,
		Password:    in.Password,
		JobTitle:    in.JobTitle,
		CompanyName: in.CompanyName,
	})
	_, err := a.client.Do(ctx, EndpointRegister, desc)
	if err != nil {
		if !demoEligible(ctx, err) {
			return RegisterResult{}, authError(err, "Signup failed")
		}
		log.Warn().Err(err).Msg("API not available, using demo mode")
		return RegisterResult{Message: msgDemoRegistered, Demo: true}, nil
	}
	return RegisterResult{Message: msgRegistered}, nil
}

func (a *FinancialAPI) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// CurrentSession returns session.ErrNoSession when logged out.
func (a *FinancialAPI) CurrentSession(ctx context.Context) (*session.Session, error) {
	return a.store.Load(ctx)
}

func (a *FinancialAPI) saveSession(ctx context.Context, token string, user session.User) (*session.Session, error) {
	s := session.Session{Token: token, User: user, CreatedAt: a.now()}
	if err := a.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &s, nil
}

// demoEligible reports whether err means the backend was unreachable rather
// than that it answered with a refusal.
func demoEligible(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, apiclient.ErrCanceled) {
		return false
	}
	if errors.Is(err, apiclient.ErrClientError) || errors.Is(err, apiclient.ErrMalformedResponse) {
		return false
	}
	return errors.Is(err, apiclient.ErrNoFallback)
}

func authError(err error, fallback string) error {
	var fe *apiclient.FailureError
	if errors.As(err, &fe) && fe.Kind == apiclient.KindClientError {
		msg := backendMessage(fe.Body)
		if msg == "" {
			msg = fallback
		}
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

func backendMessage(body string) string {
	if body == "" {
		return ""
	}
	node, err := sonic.GetFromString(body, "message")
	if err != nil {
		return ""
	}
	msg, err := node.String()
	if err != nil {
		return ""
	}
	return msg
}
