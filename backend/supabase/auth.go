package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"lumi/backend"
	"lumi/domain"
)

// authAPI implements backend.Auth over the GoTrue-style auth surface.
type authAPI struct {
	client *Client
	state  sessionState
}

var _ backend.Auth = (*authAPI)(nil)

// tokenResponse is the wire shape of a successful sign-in or sign-up.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         backend.User `json:"user"`
}

func (t tokenResponse) session() *backend.Session {
	return &backend.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
		User:         t.User,
	}
}

func (a *authAPI) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	if email == "" || password == "" {
		return nil, domain.Validationf("email and password are required")
	}

	q := url.Values{}
	q.Set("grant_type", "password")
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if _, err := a.client.do(ctx, http.MethodPost, "/auth/v1/token", q, "", body, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	a.state.set(sess)
	return sess, nil
}

func (a *authAPI) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	if email == "" || password == "" {
		return nil, domain.Validationf("email and password are required")
	}

	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if _, err := a.client.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", body, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	a.state.set(sess)
	return sess, nil
}

// OAuthURL builds the redirect URL that starts an OAuth sign-in with the
// given provider. The browser flow completes on the service side.
func (a *authAPI) OAuthURL(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return a.client.baseURL + "/auth/v1/authorize?" + q.Encode()
}

func (a *authAPI) Recover(ctx context.Context, email string) error {
	if email == "" {
		return domain.Validationf("email is required")
	}
	body := map[string]string{"email": email}
	_, err := a.client.do(ctx, http.MethodPost, "/auth/v1/recover", nil, "", body, nil)
	return err
}

func (a *authAPI) SignOut(ctx context.Context) error {
	_, err := a.client.do(ctx, http.MethodPost, "/auth/v1/logout", nil, "", nil, nil)
	// The local session is gone either way.
	a.state.set(nil)
	return err
}

func (a *authAPI) Session() *backend.Session {
	return a.state.get()
}

// SetSession installs a previously stored session, e.g. one restored from
// disk between CLI runs.
func (a *authAPI) SetSession(s *backend.Session) {
	a.state.set(s)
}

func (a *authAPI) OnSessionChange(fn func(*backend.Session)) func() {
	return a.state.listen(fn)
}
