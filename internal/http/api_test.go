package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"todo-app/internal/auth"
	"todo-app/internal/repository"
	"todo-app/internal/repository/memory"
	"todo-app/internal/service"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := auth.NewTokenManager("test-secret", 0)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ids := repository.NewIDSequence()
	accounts := service.NewAccountService(memory.NewAccountRepository(ids), hasher)
	todos := service.NewTodoService(memory.NewTodoRepository(ids))

	router := gin.New()
	NewHandler(accounts, todos, tokens, logger, []string{"*"}).RegisterRoutes(router)
	return &testServer{router: router, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) registerAndLogin(t *testing.T, username, password string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": password}
	if rec := s.do(t, http.MethodPost, "/api/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodPost, "/api/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decode(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Fatalf("login returned no token: %s", rec.Body.String())
	}
	return resp.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body=%q)", err, rec.Body.String())
	}
}

func TestTodoScenario(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	if rec.Code != http.StatusCreated || rec.Body.String() != "User registered successfully" {
		t.Fatalf("register = %d %q", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "pw1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var login loginResponse
	decode(t, rec, &login)

	identity, err := srv.tokens.Verify(login.AccessToken)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if identity.Username != "alice" || identity.ID == 0 {
		t.Fatalf("unexpected identity: %#v", identity)
	}
	token := login.AccessToken

	rec = srv.do(t, http.MethodPost, "/api/todos", token, map[string]string{"text": "milk"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created TodoResponse
	decode(t, rec, &created)
	if created.Text != "milk" || created.Completed || created.UserID != identity.ID {
		t.Fatalf("unexpected created todo: %#v", created)
	}

	rec = srv.do(t, http.MethodGet, "/api/todos", token, nil)
	var list []TodoResponse
	decode(t, rec, &list)
	if rec.Code != http.StatusOK || len(list) != 1 || list[0] != created {
		t.Fatalf("list = %d %#v", rec.Code, list)
	}

	path := fmt.Sprintf("/api/todos/%d", created.ID)
	rec = srv.do(t, http.MethodPut, path, token, map[string]bool{"completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var updated TodoResponse
	decode(t, rec, &updated)
	if !updated.Completed || updated.Text != "milk" || updated.ID != created.ID {
		t.Fatalf("unexpected updated todo: %#v", updated)
	}

	rec = srv.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete = %d %q", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/api/todos", token, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("list after delete = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t, "alice", "pw1")

	rec := srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "nope"})
	if rec.Code != http.StatusOK || rec.Body.String() != "Not Allowed" {
		t.Fatalf("wrong password = %d %q", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("accessToken")) {
		t.Fatal("wrong password yielded a token")
	}

	rec = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "bob", "password": "pw1"})
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "Cannot find user" {
		t.Fatalf("unknown user = %d %q", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/api/login", "", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestMissingPasswordIs500(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice"})
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Error registering user" {
		t.Fatalf("register without password = %d %q", rec.Code, rec.Body.String())
	}
	rec = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice"})
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "Cannot find user" {
		t.Fatalf("no account should have been stored: %d %q", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "bob", "password": ""})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register with empty password = %d", rec.Code)
	}
	rec = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "bob"})
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Error logging in" {
		t.Fatalf("login without password = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegisterHashFailureIs500(t *testing.T) {
	srv := newTestServer(t)
	long := string(bytes.Repeat([]byte("x"), 100))
	rec := srv.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": long})
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Error registering user" {
		t.Fatalf("register = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthGate(t *testing.T) {
	srv := newTestServer(t)
	foreign, err := auth.NewTokenManager("other-secret", 0)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	badToken, _ := foreign.Issue(auth.Identity{ID: 1, Username: "eve"})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized},
		{name: "scheme only", header: "Bearer", want: http.StatusUnauthorized},
		{name: "empty token field", header: "Bearer ", want: http.StatusForbidden},
		{name: "double space", header: "Bearer  abc", want: http.StatusForbidden},
		{name: "garbage token", header: "Bearer garbage", want: http.StatusForbidden},
		{name: "wrong secret", header: "Bearer " + badToken, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, route := range []struct{ method, path string }{
				{http.MethodGet, "/api/todos"},
				{http.MethodPost, "/api/todos"},
				{http.MethodPut, "/api/todos/1"},
				{http.MethodDelete, "/api/todos/1"},
			} {
				req := httptest.NewRequest(route.method, route.path, nil)
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				rec := httptest.NewRecorder()
				srv.router.ServeHTTP(rec, req)
				if rec.Code != tc.want {
					t.Fatalf("%s %s = %d, want %d", route.method, route.path, rec.Code, tc.want)
				}
			}
		})
	}
}

func TestTokenTrustedWithoutAccountLookup(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tokens.Issue(auth.Identity{ID: 999, Username: "ghost"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := srv.do(t, http.MethodPost, "/api/todos", token, map[string]string{"text": "x"})
	var created TodoResponse
	decode(t, rec, &created)
	if rec.Code != http.StatusCreated || created.UserID != 999 {
		t.Fatalf("create = %d %#v", rec.Code, created)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.registerAndLogin(t, "alice", "pw1")
	bob := srv.registerAndLogin(t, "bob", "pw2")

	rec := srv.do(t, http.MethodPost, "/api/todos", alice, map[string]string{"text": "alice's"})
	var todo TodoResponse
	decode(t, rec, &todo)
	path := fmt.Sprintf("/api/todos/%d", todo.ID)

	rec = srv.do(t, http.MethodGet, "/api/todos", bob, nil)
	if rec.Body.String() != "[]" {
		t.Fatalf("bob sees alice's todos: %s", rec.Body.String())
	}

	rec = srv.do(t, http.MethodPut, path, bob, map[string]bool{"completed": true})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bob update = %d", rec.Code)
	}
	var notFound map[string]string
	decode(t, rec, &notFound)
	if notFound["error"] != "Todo not found" {
		t.Fatalf("not found body = %#v", notFound)
	}

	rec = srv.do(t, http.MethodDelete, path, bob, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("bob delete = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, "/api/todos", alice, nil)
	var list []TodoResponse
	decode(t, rec, &list)
	if len(list) != 1 || list[0] != todo {
		t.Fatalf("alice's todos changed: %#v", list)
	}
}

func TestUpdateIgnoresIdentityFields(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "alice", "pw1")

	rec := srv.do(t, http.MethodPost, "/api/todos", token, map[string]string{"text": "a"})
	var todo TodoResponse
	decode(t, rec, &todo)

	body := `{"id": 1, "userId": 12345, "text": "b", "extra": "x"}`
	rec = srv.do(t, http.MethodPut, fmt.Sprintf("/api/todos/%d", todo.ID), token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body.String())
	}
	var updated TodoResponse
	decode(t, rec, &updated)
	if updated.ID != todo.ID || updated.UserID != todo.UserID || updated.Text != "b" || updated.Completed {
		t.Fatalf("unexpected updated todo: %#v", updated)
	}
}

func TestTodoRequestValidation(t *testing.T) {
	srv := newTestServer(t)
	token := srv.registerAndLogin(t, "alice", "pw1")

	if rec := srv.do(t, http.MethodPut, "/api/todos/abc", token, map[string]bool{"completed": true}); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric update id = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/api/todos/abc", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric delete id = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/api/todos", token, `{"text": 5}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong text type = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/api/todos/424242", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete missing = %d", rec.Code)
	}

	rec := srv.do(t, http.MethodPost, "/api/todos", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create without body = %d", rec.Code)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}
