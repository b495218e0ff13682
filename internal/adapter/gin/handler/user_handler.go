package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"serverless-user-api/internal/metrics"
	"serverless-user-api/internal/usecase/user"
	pkgerrors "serverless-user-api/pkg/errors"
	"serverless-user-api/pkg/logger"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	registerAliases()
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,user_name"`
	Email string `json:"email" binding:"required,user_email"`
}

// UpdateUserRequest represents the HTTP request body for updating a user
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty,user_name"`
	Email string `json:"email" binding:"omitempty,user_email"`
}

// ListUsersQuery represents the query string of GET /api/users
type ListUsersQuery struct {
	Query string `form:"query" binding:"max=100"`
	Page  int64  `form:"page" binding:"omitempty,min=1"`
	Limit int64  `form:"limit" binding:"omitempty,min=1"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListUsersResponse represents the HTTP response for listing users
type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination *Pagination    `json:"pagination,omitempty"`
}

// Pagination represents pagination information
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// DeleteUserResponse represents the HTTP response for a deleted user
type DeleteUserResponse struct {
	ID int64 `json:"id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req CreateUserRequest
	if err := c.ShouldBindWith(&req, strictJSON); err != nil {
		log.Warn("invalid create user request", zap.Error(err))
		writeBindError(c, err)
		return
	}

	log.Info("gin CreateUser request", zap.String("name", req.Name), zap.String("email", req.Email))

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	metrics.ObserveUserOperation("create", err)
	if err != nil {
		h.handleError(c, log, "CreateUser", err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(resp))
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	id, ok := parseID(c, log)
	if !ok {
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	metrics.ObserveUserOperation("get", err)
	if err != nil {
		h.handleError(c, log, "GetUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// UpdateUser handles PUT and PATCH /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	id, ok := parseID(c, log)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindWith(&req, strictJSON); err != nil {
		log.Warn("invalid update user request", zap.Error(err))
		writeBindError(c, err)
		return
	}

	log.Info("gin UpdateUser request", zap.Int64("id", id), zap.String("name", req.Name), zap.String("email", req.Email))

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
	})
	metrics.ObserveUserOperation("update", err)
	if err != nil {
		h.handleError(c, log, "UpdateUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	id, ok := parseID(c, log)
	if !ok {
		return
	}

	resp, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id})
	metrics.ObserveUserOperation("delete", err)
	if err != nil {
		h.handleError(c, log, "DeleteUser", err)
		return
	}

	c.JSON(http.StatusOK, DeleteUserResponse{ID: resp.ID})
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var q ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		log.Warn("invalid list users query", zap.Error(err))
		writeBindError(c, err)
		return
	}

	resp, err := h.uc.ListUsers(c.Request.Context(), user.ListUsersRequest{
		Query: q.Query,
		Page:  q.Page,
		Limit: q.Limit,
	})
	metrics.ObserveUserOperation("list", err)
	if err != nil {
		h.handleError(c, log, "ListUsers", err)
		return
	}

	users := make([]UserResponse, len(resp.Users))
	for i := range resp.Users {
		users[i] = toResponse(&resp.Users[i])
	}

	var pagination *Pagination
	if resp.Pagination != nil {
		pagination = &Pagination{
			Total:      resp.Pagination.Total,
			Page:       resp.Pagination.Page,
			Limit:      resp.Pagination.Limit,
			TotalPages: resp.Pagination.TotalPages,
		}
	}

	c.JSON(http.StatusOK, ListUsersResponse{
		Users:      users,
		Pagination: pagination,
	})
}

func parseID(c *gin.Context, log *zap.Logger) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid user id", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "User ID must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// writeBindError reports malformed JSON, unknown fields, type mismatches and
// failed binding rules as validation errors.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

// handleError converts usecase errors to HTTP responses. Internal causes are logged, never returned.
func (h *UserHandler) handleError(c *gin.Context, log *zap.Logger, op string, err error) {
	status, code := pkgerrors.StatusOf(err)

	if status >= http.StatusInternalServerError {
		log.Error("gin "+op+" failed", zap.Error(err))
		c.JSON(status, ErrorResponse{
			Error:   code,
			Message: "An internal error occurred",
		})
		return
	}

	log.Warn("gin "+op+" rejected", zap.Int("status", status), zap.Error(err))

	msg := err.Error()
	var ve *pkgerrors.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Message
	}
	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
