package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/userhub/user-api/internal/core/domain"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,max=64"`
}

type updateUserRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,max=64"`
}

type listUsersQuery struct {
	Name string `query:"name" validate:"max=100"`
	Role string `query:"role" validate:"max=64"`
}

type signupResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	User      *domain.User `json:"user"`
	ExpiresIn int64        `json:"expiresIn"`
}

type usersResponse struct {
	Users []domain.User `json:"users"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// normalizer is implemented by requests whose text fields are trimmed
// before validation, so whitespace-only values fail "required".
type normalizer interface {
	normalize()
}

func (r *signupRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

func (r *loginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *createUserRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *updateUserRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

var errInvalidPayload = domain.NewValidationError("invalid payload")

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidPayload
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(req)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid data", domain.FieldError{
			Field:   "id",
			Message: "id must be a positive integer",
		})
	}
	return id, nil
}
