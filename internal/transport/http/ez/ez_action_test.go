package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-auth/internal/domain"
	resp "go-gin-gorm-auth/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrDuplicateAccount, 400},
		{fmt.Errorf("%w: bad email", domain.ErrInvalidInput), 400},
		{domain.ErrInvalidCredentials, 401},
		{domain.ErrInvalidToken, 401},
		{domain.ErrTokenExpired, 401},
		{domain.ErrUnauthenticated, 401},
		{domain.ErrInsufficientPrivilege, 403},
		{domain.ErrUserNotFound, 404},
		{&AErr{Code: 404, Msg: "nope"}, 404},
		{BadRequest("bad"), 400},
		{domain.Storage("find user", errors.New("dial tcp 10.0.0.1:3306: refused")), 500},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, FromError(tc.err).Code, tc.err.Error())
	}

	ae := FromError(domain.Storage("find user", errors.New("dial tcp 10.0.0.1:3306: refused")))
	assert.Equal(t, "internal error", ae.Error())
}

type echoIn struct {
	Name string `json:"name" form:"name" binding:"required"`
}

func serve(r *gin.Engine, method, path, body, ctype string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterAction(t *testing.T) {
	r := gin.New()
	e := New(r.Group(""))
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindAuto,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *echoIn) (gin.H, error) {
			if in.Name == "taken" {
				return nil, domain.ErrDuplicateAccount
			}
			return gin.H{"name": in.Name}, nil
		},
	})

	w := serve(r, http.MethodPost, "/echo", `{"name":"alice"}`, "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"code":0,"msg":"OK","data":{"name":"alice"}}`, w.Body.String())

	w = serve(r, http.MethodPost, "/echo", "name=bob", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodPost, "/echo", `{}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 400, decode(t, w).Code)

	w = serve(r, http.MethodPost, "/echo", `{"name":"taken"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrDuplicateAccount.Error(), decode(t, w).Msg)
}

func TestRegisterActionAuthAndRoles(t *testing.T) {
	r := gin.New()
	g := r.Group("")
	g.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(KeyUser, &domain.User{Email: "a@example.com", Role: domain.Role(role)})
		}
		c.Next()
	})
	RegisterAction(New(g), Action[struct{}, string]{
		Method:  http.MethodGet,
		Path:    "/admin-only",
		Binder:  BindNone,
		Auth:    true,
		Roles:   []string{"admin"},
		Handler: func(c *gin.Context, _ *struct{}) (string, error) { return CurrentUser(c).Email, nil },
	})

	w := serve(r, http.MethodGet, "/admin-only", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("X-Test-Role", "user")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("X-Test-Role", "admin")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.com", decode(t, w).Data)
}

func TestAbortHidesStorageDetail(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		Abort(c, domain.Storage("find user", errors.New("password=hunter2 host=db")))
	})
	w := serve(r, http.MethodGet, "/x", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}
