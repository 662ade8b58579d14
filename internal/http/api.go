package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"todo-app/internal/auth"
	"todo-app/internal/domain"
	"todo-app/internal/service"
)

// Handler wires HTTP routes to the account and todo services.
type Handler struct {
	accounts service.AccountService
	todos    service.TodoService
	tokens   *auth.TokenManager
	logger   *logrus.Logger
	origins  []string
}

func NewHandler(accounts service.AccountService, todos service.TodoService, tokens *auth.TokenManager, logger *logrus.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		accounts: accounts,
		todos:    todos,
		tokens:   tokens,
		logger:   logger,
		origins:  allowedOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware(h.origins))

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		todos := api.Group("/todos")
		todos.Use(h.authGate())
		{
			todos.GET("", h.listTodos)
			todos.POST("", h.createTodo)
			todos.PUT("/:id", h.updateTodo)
			todos.DELETE("/:id", h.deleteTodo)
		}
	}
}

// Password is a pointer so an absent field can be told apart from "".
type credentialsRequest struct {
	Username string  `json:"username"`
	Password *string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type createTodoRequest struct {
	Text string `json:"text"`
}

// Only text and completed are honoured; id and userId in the body are ignored.
type updateTodoRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

type TodoResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Password == nil {
		h.logger.WithField("username", req.Username).Error("register failed: password missing")
		c.String(http.StatusInternalServerError, "Error registering user")
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.Username, *req.Password)
	if err != nil {
		h.logger.WithError(err).WithField("username", req.Username).Error("register failed")
		c.String(http.StatusInternalServerError, "Error registering user")
		return
	}

	setIdentity(c, auth.Identity{ID: account.ID, Username: account.Username})
	c.String(http.StatusCreated, "User registered successfully")
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	password := ""
	if req.Password != nil {
		password = *req.Password
	}
	account, err := h.accounts.Authenticate(c.Request.Context(), req.Username, password)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		c.String(http.StatusBadRequest, "Cannot find user")
		return
	case req.Password == nil:
		h.logger.WithField("username", req.Username).Error("login failed: password missing")
		c.String(http.StatusInternalServerError, "Error logging in")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		c.String(http.StatusOK, "Not Allowed")
		return
	case err != nil:
		h.logger.WithError(err).WithField("username", req.Username).Error("login failed")
		c.String(http.StatusInternalServerError, "Error logging in")
		return
	}

	identity := auth.Identity{ID: account.ID, Username: account.Username}
	token, err := h.tokens.Issue(identity)
	if err != nil {
		h.logger.WithError(err).WithField("username", req.Username).Error("issue token failed")
		c.String(http.StatusInternalServerError, "Error logging in")
		return
	}

	setIdentity(c, identity)
	c.JSON(http.StatusOK, loginResponse{AccessToken: token})
}

func (h *Handler) listTodos(c *gin.Context) {
	identity := identityFrom(c)
	todos, err := h.todos.List(c.Request.Context(), identity.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]TodoResponse, len(todos))
	for i := range todos {
		resp[i] = todoToResponse(todos[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createTodo(c *gin.Context) {
	var req createTodoRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	todo, err := h.todos.Add(c.Request.Context(), identityFrom(c).ID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, todoToResponse(*todo))
}

func (h *Handler) updateTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.TodoPatch{Text: req.Text, Completed: req.Completed}
	todo, err := h.todos.Update(c.Request.Context(), id, identityFrom(c).ID, patch)
	if err != nil {
		if errors.Is(err, service.ErrTodoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, todoToResponse(*todo))
}

func (h *Handler) deleteTodo(c *gin.Context) {
	id, ok := parseTodoID(c)
	if !ok {
		return
	}

	if err := h.todos.Delete(c.Request.Context(), id, identityFrom(c).ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseTodoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid todo id"})
		return 0, false
	}
	return id, true
}

// bindOptionalJSON decodes the request body into dst, treating an empty body as {}.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func todoToResponse(todo domain.Todo) TodoResponse {
	return TodoResponse{
		ID:        todo.ID,
		UserID:    todo.OwnerID,
		Text:      todo.Text,
		Completed: todo.Completed,
	}
}
