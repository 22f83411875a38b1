package login_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/screen/login"
	"github.com/jwalitptl/innoguard/internal/session"
	fake "github.com/jwalitptl/innoguard/internal/testutil"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

type recorder struct {
	routes []string
}

func (r *recorder) Navigate(_ context.Context, route string) error {
	r.routes = append(r.routes, route)
	return nil
}

func setup(t *testing.T) (*fake.Backend, session.Store, *recorder, *login.Screen) {
	t.Helper()
	b := fake.NewBackend()
	t.Cleanup(b.Close)
	store := session.NewMemoryStore(0)
	nav := &recorder{}
	client := apiclient.New(apiclient.Config{BaseURL: b.URL(), Timeout: 5 * time.Second})
	return b, store, nav, login.NewScreen(client, store, "sid", nav)
}

func TestLogin_EachRole(t *testing.T) {
	for _, role := range model.Roles {
		t.Run(role.String(), func(t *testing.T) {
			b, store, nav, screen := setup(t)

			require.NoError(t, screen.SelectRole(role))
			require.NoError(t, screen.Login(context.Background()))

			reqs := b.RequestsTo("/token")
			require.Len(t, reqs, 1)
			assert.JSONEq(t, `{"role":"`+role.String()+`"}`, reqs[0].Body)

			sess, err := store.Load(context.Background(), "sid")
			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
			assert.Equal(t, role, sess.Role)

			assert.Equal(t, []string{login.DashboardRoute}, nav.routes)
			assert.False(t, screen.Loading())
			assert.NoError(t, screen.Error())
		})
	}
}

func TestLogin_LastSelectedRoleWins(t *testing.T) {
	b, store, _, screen := setup(t)

	require.NoError(t, screen.SelectRole(model.RoleDeveloper))
	require.NoError(t, screen.SelectRole(model.RoleResearcher))
	require.NoError(t, screen.Login(context.Background()))

	assert.JSONEq(t, `{"role":"researcher"}`, b.RequestsTo("/token")[0].Body)
	sess, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, model.RoleResearcher, sess.Role)
}

func TestLogin_DefaultsToClinician(t *testing.T) {
	_, _, _, screen := setup(t)

	assert.Equal(t, model.RoleClinician, screen.Role())
	assert.Equal(t, "Continue as Doctor", screen.SubmitLabel())
}

func TestSelectRole_RejectsUnknown(t *testing.T) {
	_, _, _, screen := setup(t)

	err := screen.SelectRole(model.Role("admin"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	assert.Equal(t, model.RoleClinician, screen.Role())
}

func TestLogin_StatusFailure(t *testing.T) {
	b, store, nav, screen := setup(t)
	b.FailToken(http.StatusInternalServerError)

	err := screen.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLoginFailed)
	assert.Equal(t, "Login failed: 500", screen.ErrorMessage())

	_, err = store.Load(context.Background(), "sid")
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
	assert.Empty(t, nav.routes)
	assert.False(t, screen.Loading())
}

func TestLogin_NoToken(t *testing.T) {
	b, store, nav, screen := setup(t)
	b.OmitToken()

	err := screen.Login(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLoginFailed)
	assert.Equal(t, "No token received from server.", screen.ErrorMessage())

	_, err = store.Load(context.Background(), "sid")
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
	assert.Empty(t, nav.routes)
}

type stubClient struct {
	resp  *model.TokenResponse
	err   error
	gate  chan struct{}
	enter chan struct{}
}

func (c *stubClient) RequestToken(ctx context.Context, _ model.Role) (*model.TokenResponse, error) {
	if c.enter != nil {
		close(c.enter)
	}
	if c.gate != nil {
		<-c.gate
	}
	return c.resp, c.err
}

type emptyErr struct{}

func (emptyErr) Error() string { return "" }

func TestLogin_TransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "with message", err: errors.New("connection refused"), want: "connection refused"},
		{name: "without message", err: emptyErr{}, want: "Unexpected error occurred."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore(0)
			screen := login.NewScreen(&stubClient{err: tt.err}, store, "sid", nil)

			err := screen.Login(context.Background())
			assert.ErrorIs(t, err, apperrors.ErrLoginFailed)
			assert.Equal(t, tt.want, screen.ErrorMessage())
			assert.False(t, screen.Loading())
		})
	}
}

func TestLogin_LoadingWhileInFlight(t *testing.T) {
	client := &stubClient{
		resp:  &model.TokenResponse{AccessToken: "tok"},
		gate:  make(chan struct{}),
		enter: make(chan struct{}),
	}
	screen := login.NewScreen(client, session.NewMemoryStore(0), "sid", nil)

	done := make(chan error, 1)
	go func() { done <- screen.Login(context.Background()) }()

	<-client.enter
	assert.True(t, screen.Loading())
	assert.Equal(t, login.SubmittingLabel, screen.SubmitLabel())
	assert.ErrorIs(t, screen.Login(context.Background()), login.ErrLoginInProgress)

	close(client.gate)
	require.NoError(t, <-done)
	assert.False(t, screen.Loading())
	assert.Equal(t, "Continue as Doctor", screen.SubmitLabel())
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	b, _, _, screen := setup(t)
	b.FailToken(http.StatusBadGateway)
	require.Error(t, screen.Login(context.Background()))
	assert.NotEmpty(t, screen.ErrorMessage())

	b.FailToken(0)
	require.NoError(t, screen.Login(context.Background()))
	assert.Empty(t, screen.ErrorMessage())
}

func TestView(t *testing.T) {
	_, _, _, screen := setup(t)
	require.NoError(t, screen.SelectRole(model.RoleDeveloper))

	v := screen.View()
	assert.Equal(t, "Continue as Developer", v.SubmitLabel)
	require.Len(t, v.Roles, 3)
	assert.Equal(t, "Doctor", v.Roles[0].Label)
	assert.True(t, v.Roles[1].Selected)
	assert.False(t, v.Roles[2].Selected)
}
