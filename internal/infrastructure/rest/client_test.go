package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/pkg/errors"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token() (string, bool) {
	return s.token, s.token != ""
}

func newTestClient(t *testing.T, e *echo.Echo, token string, onExpired func()) *Client {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, staticTokens{token: token}, onExpired)
}

func TestGetDecodesEnvelope(t *testing.T) {
	e := echo.New()
	e.GET("/users/user_a", func(c echo.Context) error {
		assert.Equal(t, "Bearer token-a", c.Request().Header.Get("Authorization"))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"id": "user_a", "username": "Ada"},
		})
	})
	client := newTestClient(t, e, "token-a", nil)

	var user struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, client.Get(context.Background(), "/users/user_a", &user))
	assert.Equal(t, "user_a", user.ID)
	assert.Equal(t, "Ada", user.Username)
}

func TestUnauthorizedTriggersSessionExpiry(t *testing.T) {
	e := echo.New()
	e.GET("/users/me", func(c echo.Context) error {
		return c.NoContent(http.StatusUnauthorized)
	})

	expired := false
	client := newTestClient(t, e, "stale-token", func() { expired = true })

	err := client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
	assert.True(t, expired)
}

func TestFailureEnvelopeBecomesTypedError(t *testing.T) {
	e := echo.New()
	e.GET("/items/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Item not found",
		})
	})
	e.POST("/items", func(c echo.Context) error {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Title is required",
		})
	})
	client := newTestClient(t, e, "token-a", nil)

	err := client.Get(context.Background(), "/items/missing", nil)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	err = client.Post(context.Background(), "/items", map[string]string{}, nil)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, staticTokens{}, nil)

	err := client.Get(context.Background(), "/anything", nil)
	assert.True(t, errors.Is(err, "UNAVAILABLE"))
}

func TestUploadReturnsServedURL(t *testing.T) {
	e := echo.New()
	e.POST("/files", func(c echo.Context) error {
		file, err := c.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "photo.jpg", file.Filename)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"url": "https://cdn.example.com/photo.jpg"},
		})
	})
	client := newTestClient(t, e, "token-a", nil)

	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	url, err := client.Upload(context.Background(), "/files", "file", path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", url)
}
