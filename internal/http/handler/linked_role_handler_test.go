package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/cookie"
	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
	httpHandler "github.com/smallbiznis/linkedroles-worker/internal/http/handler"
	"github.com/smallbiznis/linkedroles-worker/internal/service/linkedrole"
)

func TestLinkedRole_SetsStateCookieAndRedirects(t *testing.T) {
	for _, secure := range []bool{false, true} {
		svc := &fakeService{authURL: "https://discord.example/authorize?state=s-1", state: "s-1"}
		signer := cookie.NewStateSigner("secret")
		r := newLinkedRoleEngine(svc, signer, secure)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/linked-role", nil))
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, svc.authURL, w.Header().Get("Location"))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		require.Equal(t, cookie.StateCookieName, c.Name)
		require.Equal(t, 300, c.MaxAge)
		require.True(t, c.HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
		require.Equal(t, secure, c.Secure)

		state, err := signer.Verify(c.Value)
		require.NoError(t, err)
		require.Equal(t, "s-1", state)
	}
}

func TestOAuthCallback_StateMismatch(t *testing.T) {
	signer := cookie.NewStateSigner("secret")
	signed, err := signer.Sign("s-1")
	require.NoError(t, err)
	forged, err := cookie.NewStateSigner("other").Sign("s-1")
	require.NoError(t, err)

	cases := map[string]*http.Cookie{
		"no cookie":       nil,
		"wrong state":     {Name: cookie.StateCookieName, Value: signed},
		"forged cookie":   {Name: cookie.StateCookieName, Value: forged},
		"unsigned cookie": {Name: cookie.StateCookieName, Value: "s-1"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{}
			r := newLinkedRoleEngine(svc, signer, false)

			target := "/oauth-callback?code=abc&state=s-1"
			if name == "wrong state" {
				target = "/oauth-callback?code=abc&state=s-2"
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if c != nil {
				req.AddCookie(c)
			}
			w := serve(r, req)
			require.Equal(t, http.StatusForbidden, w.Code)
			require.Equal(t, "state verification failed", w.Body.String())
			require.Zero(t, svc.callbackCalls)
		})
	}
}

func TestOAuthCallback_Success(t *testing.T) {
	signer := cookie.NewStateSigner("secret")
	svc := &fakeService{callbackResult: &linkedrole.CallbackResult{UserID: "42", MetadataPushed: true}}
	r := newLinkedRoleEngine(svc, signer, false)

	w := serve(r, callbackRequest(t, signer, "s-1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "connected! you may now close this window", w.Body.String())
	require.Equal(t, 1, svc.callbackCalls)
	require.Equal(t, "abc", svc.lastCode)
}

func TestOAuthCallback_Failure(t *testing.T) {
	signer := cookie.NewStateSigner("secret")
	for name, svc := range map[string]*fakeService{
		"error": {callbackErr: domainoauth.ErrProviderRequest},
		"panic": {callbackPanic: true},
	} {
		t.Run(name, func(t *testing.T) {
			r := newLinkedRoleEngine(svc, signer, false)
			w := serve(r, callbackRequest(t, signer, "s-1"))
			require.Equal(t, http.StatusInternalServerError, w.Code)
			require.Equal(t, "oh uh, something wrong happened", w.Body.String())
		})
	}
}

func TestUpdateMetadata(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		svc    *fakeService
		status int
		want   string
	}{
		{"bad body", `{}`, &fakeService{}, http.StatusBadRequest, "user_id"},
		{"not stored", `{"user_id":"42"}`, &fakeService{updateErr: domainoauth.ErrTokenNotFound}, http.StatusNotFound, "no tokens"},
		{"upstream", `{"user_id":"42"}`, &fakeService{updateErr: domainoauth.ErrProviderRequest}, http.StatusBadGateway, "upstream"},
		{"ok", `{"user_id":"42"}`, &fakeService{rc: &domainoauth.RoleConnection{PlatformName: "NCEA Help", Metadata: map[string]string{"verified": "1"}}}, http.StatusOK, `"platform_name":"NCEA Help"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newLinkedRoleEngine(tc.svc, cookie.NewStateSigner("secret"), false)
			req := httptest.NewRequest(http.MethodPost, "/update-metadata", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(r, req)
			require.Equal(t, tc.status, w.Code)
			require.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestHello(t *testing.T) {
	r := newLinkedRoleEngine(&fakeService{}, cookie.NewStateSigner("secret"), false)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "👋 app-1", w.Body.String())
}

func newLinkedRoleEngine(svc linkedrole.Service, signer *cookie.StateSigner, secure bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := httpHandler.NewLinkedRoleHandler(svc, signer, "app-1", secure, zap.NewNop())
	r := gin.New()
	r.GET("/", h.Hello)
	r.GET("/linked-role", h.LinkedRole)
	r.GET("/oauth-callback", h.OAuthCallback)
	r.POST("/update-metadata", h.UpdateMetadata)
	return r
}

func callbackRequest(t *testing.T, signer *cookie.StateSigner, state string) *http.Request {
	t.Helper()
	signed, err := signer.Sign(state)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/oauth-callback?code=abc&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: cookie.StateCookieName, Value: signed})
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeService struct {
	authURL string
	state   string

	callbackCalls  int
	lastCode       string
	callbackResult *linkedrole.CallbackResult
	callbackErr    error
	callbackPanic  bool

	rc        *domainoauth.RoleConnection
	updateErr error
}

func (f *fakeService) BuildAuthorizationURL() (string, string, error) {
	return f.authURL, f.state, nil
}

func (f *fakeService) HandleCallback(_ context.Context, code string) (*linkedrole.CallbackResult, error) {
	f.callbackCalls++
	f.lastCode = code
	if f.callbackPanic {
		panic("boom")
	}
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	if f.callbackResult == nil {
		return &linkedrole.CallbackResult{}, nil
	}
	return f.callbackResult, nil
}

func (f *fakeService) ExchangeCode(context.Context, string) (*domain.TokenRecord, error) {
	return nil, nil
}

func (f *fakeService) FetchIdentity(context.Context, domain.TokenRecord) (*domainoauth.AuthorizationInfo, error) {
	return nil, nil
}

func (f *fakeService) EnsureFreshAccessToken(_ context.Context, _ string, record *domain.TokenRecord) (string, error) {
	return record.AccessToken, nil
}

func (f *fakeService) FetchRoleConnectionMetadata(context.Context, string, *domain.TokenRecord) (*domainoauth.RoleConnection, error) {
	return f.rc, nil
}

func (f *fakeService) PushRoleConnectionMetadata(context.Context, string, *domain.TokenRecord, domainoauth.RoleConnection) error {
	return nil
}

func (f *fakeService) UpdateMetadata(context.Context, string) (*domainoauth.RoleConnection, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.rc, nil
}
