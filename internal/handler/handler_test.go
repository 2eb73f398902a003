package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/database"
	"github.com/cardledger/internal/middleware"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	jwtCfg := config.JWTConfig{Secret: "test-secret", ExpireHours: 720, Issuer: "cardledger"}
	policy := session.Policy{
		Inactivity:    7 * 24 * time.Hour,
		EphemeralIdle: 24 * time.Hour,
		TokenLifetime: jwtCfg.TokenLifetime(),
	}

	authService := service.NewAuthService(userRepo, session.NewMemoryStore(), policy, jwtCfg)
	categoryService := service.NewCategoryService(categoryRepo)
	usageService := service.NewUsageService(usageRepo, categoryService, time.UTC, 20)

	router := gin.New()
	authMiddleware := middleware.AuthMiddleware(authService, false)
	root := router.Group("")
	NewAuthHandler(authService, false).RegisterRoutes(root, authMiddleware)
	NewCategoryHandler(categoryService).RegisterRoutes(root, authMiddleware)
	NewUsageHandler(usageService).RegisterRoutes(root, authMiddleware)
	return router
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// signUp registers username and returns a client logged in as that user
func signUp(t *testing.T, router *gin.Engine, username string) *client {
	t.Helper()
	c := &client{t: t, router: router}

	w := c.do(http.MethodPost, "/auth/register", gin.H{"username": username, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/auth/login", gin.H{"username": username, "password": "secret1", "remember": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var token service.TokenResponse
	decode(t, w, &token)
	c.token = token.AccessToken
	return c
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestRegister(t *testing.T) {
	router := newTestRouter(t)
	c := &client{t: t, router: router}

	w := c.do(http.MethodPost, "/auth/register", gin.H{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}
	decode(t, w, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)

	w = c.do(http.MethodPost, "/auth/register", gin.H{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPost, "/auth/register", gin.H{"username": "al", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/auth/register", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFailureIsUniform(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "alice")
	c := &client{t: t, router: router}

	wrong := c.do(http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "secret2"})
	unknown := c.do(http.MethodPost, "/auth/login", gin.H{"username": "nobody", "password": "secret1"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestLoginSetsSessionCookie(t *testing.T) {
	router := newTestRouter(t)
	c := signUp(t, router, "alice")
	c.token = ""

	remembered := c.do(http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "secret1", "remember": true})
	require.Equal(t, http.StatusOK, remembered.Code)
	cookies := remembered.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, 720*3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	ephemeral := c.do(http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, ephemeral.Code)
	cookies = ephemeral.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Zero(t, cookies[0].MaxAge)

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookies[0].Value})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Username string `json:"username"`
	}
	decode(t, w, &me)
	assert.Equal(t, "alice", me.Username)
}

func TestGuardRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t)
	c := &client{t: t, router: router}

	for _, path := range []string{"/auth/me", "/categories", "/usage", "/usage/export", "/usage/1"} {
		w := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, middleware.MsgUnauthorized, errorMessage(t, w), path)
	}

	c.token = "garbage"
	w := c.do(http.MethodGet, "/categories", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutExpiresSession(t *testing.T) {
	router := newTestRouter(t)
	c := signUp(t, router, "alice")

	w := c.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.MsgSessionExpired, errorMessage(t, w))
}

type categoryJSON struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestCategoryEndpoints(t *testing.T) {
	router := newTestRouter(t)
	alice := signUp(t, router, "alice")
	bob := signUp(t, router, "bob")

	w := alice.do(http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []categoryJSON
	decode(t, w, &list)
	require.Len(t, list, 4)
	assert.Equal(t, "택시비", list[0].Name)

	w = alice.do(http.MethodPost, "/categories", gin.H{"name": " 택시비 "})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = alice.do(http.MethodPost, "/categories", gin.H{"name": "야근식대"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created categoryJSON
	decode(t, w, &created)

	w = alice.do(http.MethodPatch, fmt.Sprintf("/categories/%d", created.ID), gin.H{"name": "야식"})
	require.Equal(t, http.StatusOK, w.Code)
	var renamed categoryJSON
	decode(t, w, &renamed)
	assert.Equal(t, "야식", renamed.Name)

	w = bob.do(http.MethodPatch, fmt.Sprintf("/categories/%d", created.ID), gin.H{"name": "도용"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = bob.do(http.MethodDelete, fmt.Sprintf("/categories/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = alice.do(http.MethodDelete, "/categories/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = alice.do(http.MethodDelete, fmt.Sprintf("/categories/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = alice.do(http.MethodGet, "/categories", nil)
	decode(t, w, &list)
	assert.Len(t, list, 4)
}

type usageJSON struct {
	ID         uint          `json:"id"`
	UsedAt     time.Time     `json:"usedAt"`
	Amount     *string       `json:"amount"`
	Purpose    string        `json:"purpose"`
	Memo       *string       `json:"memo"`
	CategoryID *uint         `json:"categoryId"`
	Category   *categoryJSON `json:"category"`
}

type usageListJSON struct {
	Items       []usageJSON `json:"items"`
	TotalAmount string      `json:"totalAmount"`
	Pagination  struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"pageSize"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	} `json:"pagination"`
}

func TestUsageLifecycle(t *testing.T) {
	router := newTestRouter(t)
	alice := signUp(t, router, "alice")
	bob := signUp(t, router, "bob")

	var categories []categoryJSON
	decode(t, alice.do(http.MethodGet, "/categories", nil), &categories)

	w := alice.do(http.MethodPost, "/usage", gin.H{
		"usedAt":     "2026-03-05",
		"merchant":   "카페",
		"amount":     12000,
		"purpose":    "거래처 미팅",
		"categoryId": categories[3].ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created usageJSON
	decode(t, w, &created)
	require.NotNil(t, created.Category)
	assert.Equal(t, "회의음료", created.Category.Name)
	require.NotNil(t, created.Amount)
	assert.Equal(t, "12000", *created.Amount)

	path := fmt.Sprintf("/usage/%d", created.ID)

	w = bob.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = bob.do(http.MethodPut, path, gin.H{"usedAt": "2026-03-05", "purpose": "도용"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = bob.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = alice.do(http.MethodPut, path, gin.H{"usedAt": "2026-03-06", "purpose": "팀 회의", "amount": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated usageJSON
	decode(t, w, &updated)
	assert.Nil(t, updated.Amount)
	assert.Nil(t, updated.Category)
	assert.Equal(t, "팀 회의", updated.Purpose)

	w = alice.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = alice.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsageValidation(t *testing.T) {
	router := newTestRouter(t)
	alice := signUp(t, router, "alice")

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing purpose", gin.H{"usedAt": "2026-03-05"}},
		{"missing date", gin.H{"purpose": "회의"}},
		{"negative amount", gin.H{"usedAt": "2026-03-05", "purpose": "회의", "amount": -1}},
		{"bad date", gin.H{"usedAt": "3월 5일", "purpose": "회의"}},
		{"three decimal places", gin.H{"usedAt": "2026-03-05", "purpose": "회의", "amount": "0.125"}},
		{"unknown category", gin.H{"usedAt": "2026-03-05", "purpose": "회의", "categoryId": 9999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alice.t = t
			w := alice.do(http.MethodPost, "/usage", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w))
		})
	}
}

func TestUsageListing(t *testing.T) {
	router := newTestRouter(t)
	alice := signUp(t, router, "alice")

	for day := 1; day <= 25; day++ {
		w := alice.do(http.MethodPost, "/usage", gin.H{
			"usedAt":  fmt.Sprintf("2026-03-%02d", day),
			"purpose": "회의",
			"amount":  "1000",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := alice.do(http.MethodPost, "/usage", gin.H{"usedAt": "2026-04-01", "purpose": "회의", "amount": 500})
	require.Equal(t, http.StatusCreated, w.Code)

	var page usageListJSON
	w = alice.do(http.MethodGet, "/usage?year=2026&month=3&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, "25000", page.TotalAmount)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 20, page.Pagination.PageSize)
	assert.Equal(t, int64(25), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	w = alice.do(http.MethodGet, "/usage", nil)
	decode(t, w, &page)
	assert.Len(t, page.Items, 20)
	assert.Equal(t, int64(26), page.Pagination.Total)
	assert.Equal(t, "25500", page.TotalAmount)

	w = alice.do(http.MethodGet, "/usage?year=2025&month=1", nil)
	decode(t, w, &page)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	assert.Equal(t, "0", page.TotalAmount)

	w = alice.do(http.MethodGet, "/usage?year=2026&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageExport(t *testing.T) {
	router := newTestRouter(t)
	alice := signUp(t, router, "alice")

	w := alice.do(http.MethodPost, "/usage", gin.H{
		"usedAt":  "2026-03-05",
		"purpose": `A "B" C`,
		"amount":  3000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = alice.do(http.MethodGet, "/usage/export?year=2026&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportContentType, w.Header().Get("Content-Type"))
	assert.Equal(t,
		"attachment; filename*=UTF-8''%EB%B2%95%EC%9D%B8%EC%B9%B4%EB%93%9C_2026%EB%85%843%EC%9B%94.csv",
		w.Header().Get("Content-Disposition"))

	body := w.Body.String()
	assert.Contains(t, body, "\r\n")
	assert.Contains(t, body, `"2026. 3. 5.","","A ""B"" C","3000","",""`)

	w = alice.do(http.MethodGet, "/usage/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "%EC%A0%84%EC%B2%B4.csv")
}
