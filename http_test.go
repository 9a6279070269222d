package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRouteAuthenticator(t *testing.T) *accounts.RouteAuthenticator {
	t.Helper()

	auther := accounts.NewAuthenticator(&MockIdentityProvider{}, newMockConfig()).
		WithLogger(testLogger{})

	httpAuth, err := accounts.NewHTTPAuthenticator(auther, newMockConfig())
	require.NoError(t, err)
	httpAuth.Logger = testLogger{}

	return httpAuth
}

func TestGetRedirect(t *testing.T) {
	t.Run("stored route wins and the cookie is cleared", func(t *testing.T) {
		auth := newRouteAuthenticator(t)

		ctx := &MockContext{}
		ctx.On("Cookies", "rejected_route").Return("/account/settings")

		var cleared *router.Cookie
		ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
			cleared = args.Get(0).(*router.Cookie)
		})

		assert.Equal(t, "/account/settings", auth.GetRedirect(ctx, "/dashboard"))

		require.NotNil(t, cleared)
		assert.Equal(t, "rejected_route", cleared.Name)
		assert.Empty(t, cleared.Value)
	})

	t.Run("falls back to the supplied default", func(t *testing.T) {
		auth := newRouteAuthenticator(t)

		ctx := &MockContext{}
		ctx.On("Cookies", "rejected_route").Return("")

		assert.Equal(t, "/dashboard", auth.GetRedirect(ctx, "/dashboard"))
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})

	t.Run("no default and no cookie falls back to the configured route", func(t *testing.T) {
		auth := newRouteAuthenticator(t)

		ctx := &MockContext{}
		ctx.On("Cookies", "rejected_route").Return("")

		assert.Equal(t, "/", auth.GetRedirect(ctx))
	})
}

func TestGetRedirectOrDefault(t *testing.T) {
	t.Run("referer backs up a missing cookie", func(t *testing.T) {
		auth := newRouteAuthenticator(t)

		ctx := &MockContext{}
		ctx.On("Referer").Return("/previous-page")
		ctx.On("Cookies", "rejected_route", "/previous-page").Return("/previous-page")
		ctx.On("Cookie", mock.Anything)

		assert.Equal(t, "/previous-page", auth.GetRedirectOrDefault(ctx))
	})

	t.Run("configured default when nothing else is known", func(t *testing.T) {
		auth := newRouteAuthenticator(t)

		ctx := &MockContext{}
		ctx.On("Referer").Return("")
		ctx.On("Cookies", "rejected_route", "").Return("")
		ctx.On("Cookie", mock.Anything)

		assert.Equal(t, "/", auth.GetRedirectOrDefault(ctx))
	})
}
