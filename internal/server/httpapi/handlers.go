// Package httpapi exposes the authentication and document services over
// HTTP using echo. Response shapes follow the contract the frontend ships
// with, so field names and error messages are stable.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/services"
)

// Stable caller-visible messages. Login deliberately reports a deleted
// account distinctly, while an unknown email and a wrong password share one
// message so the endpoint cannot be used for user enumeration.
const (
	msgInvalidAuthentication = "Invalid Authentication"
	msgDeletedUser           = "Deleted User"
	msgUsernameTaken         = "Username is already taken."
	msgEmailTaken            = "Email is already registered."
	msgUserNotFound          = "User not found."
	msgInvalidRefreshToken   = "Invalid refresh token"
	msgInternalError         = "Internal server error"
)

// Authenticator is the slice of AuthService the handlers need.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Register(ctx context.Context, input services.RegisterInput) (*services.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*services.TokenPair, error)
	ValidatePassword(ctx context.Context, email, password string) error
	ConfirmEmail(ctx context.Context, userID, email string) error
}

// PasswordResetter is the slice of PasswordResetService the handlers need.
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	ValidateReset(ctx context.Context, userID, token string) error
	CompleteReset(ctx context.Context, userID, token, newPassword string) error
}

type AuthHandler struct {
	auth   Authenticator
	resets PasswordResetter
	logger logging.Logger
}

func NewAuthHandler(auth Authenticator, resets PasswordResetter, logger logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, resets: resets, logger: logger.With("module", "http")}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	IsAuthSuccessful bool   `json:"isAuthSuccessful"`
	Token            string `json:"token"`
	RefreshToken     string `json:"refreshToken"`
}

type authErrorResponse struct {
	IsAuthSuccessful bool   `json:"isAuthSuccessful"`
	ErrorMessage     string `json:"errorMessage"`
}

type registrationRequest struct {
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type registrationErrorResponse struct {
	Errors []string `json:"errors"`
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type confirmEmailRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, authErrorResponse{ErrorMessage: msgInvalidAuthentication})
	}

	pair, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAccountDeleted):
			return c.JSON(http.StatusUnauthorized, authErrorResponse{ErrorMessage: msgDeletedUser})
		case errors.Is(err, common.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, authErrorResponse{ErrorMessage: msgInvalidAuthentication})
		default:
			return h.internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, authResponse{
		IsAuthSuccessful: true,
		Token:            pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
	})
}

func (h *AuthHandler) Register(c echo.Context) error {
	req := new(registrationRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, registrationErrorResponse{Errors: []string{"invalid payload"}})
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, registrationErrorResponse{Errors: []string{"userName, email and password are required"}})
	}

	pair, err := h.auth.Register(c.Request().Context(), services.RegisterInput{
		UserName:  req.UserName,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUsernameTaken):
			return c.JSON(http.StatusBadRequest, registrationErrorResponse{Errors: []string{msgUsernameTaken}})
		case errors.Is(err, common.ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, registrationErrorResponse{Errors: []string{msgEmailTaken}})
		default:
			return h.internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, authResponse{
		IsAuthSuccessful: true,
		Token:            pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
	})
}

// Refresh reports failures as plain text, matching what token interceptors
// on the client side expect.
func (h *AuthHandler) Refresh(c echo.Context) error {
	req := new(refreshRequest)
	if err := c.Bind(req); err != nil {
		return c.String(http.StatusBadRequest, "invalid payload")
	}

	pair, err := h.auth.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidSignature):
			return c.String(http.StatusUnauthorized, "Invalid token")
		case errors.Is(err, common.ErrUserNotFound):
			return c.String(http.StatusUnauthorized, msgUserNotFound)
		case errors.Is(err, common.ErrInvalidRefreshToken):
			return c.String(http.StatusUnauthorized, msgInvalidRefreshToken)
		default:
			return h.internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, authResponse{
		IsAuthSuccessful: true,
		Token:            pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
	})
}

func (h *AuthHandler) ValidatePassword(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, authErrorResponse{ErrorMessage: msgInvalidAuthentication})
	}

	if err := h.auth.ValidatePassword(c.Request().Context(), req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, common.ErrUserNotFound):
			return c.JSON(http.StatusUnauthorized, authErrorResponse{ErrorMessage: msgUserNotFound})
		case errors.Is(err, common.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, authErrorResponse{ErrorMessage: msgInvalidAuthentication})
		default:
			return h.internalError(c, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"isValid": true})
}

func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	req := new(confirmEmailRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "invalid payload"})
	}

	if err := h.auth.ConfirmEmail(c.Request().Context(), req.UserID, req.Email); err != nil {
		switch {
		case errors.Is(err, common.ErrUserNotFound):
			return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": msgUserNotFound})
		case errors.Is(err, common.ErrEmailAlreadyConfirmed):
			return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "Email is already confirmed."})
		default:
			return h.internalError(c, err)
		}
	}
	return c.NoContent(http.StatusOK)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetTokenRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type passwordResetCompleteRequest struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// RequestPasswordReset always answers 200 for a well-formed request, whether
// or not the email has an account.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	req := new(passwordResetRequest)
	if err := c.Bind(req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "email is required"})
	}
	if err := h.resets.RequestReset(c.Request().Context(), req.Email); err != nil {
		return h.internalError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) ValidatePasswordReset(c echo.Context) error {
	req := new(passwordResetTokenRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "invalid payload"})
	}
	if err := h.resets.ValidateReset(c.Request().Context(), req.UserID, req.Token); err != nil {
		if errors.Is(err, common.ErrResetInvalid) {
			return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "Reset link is invalid or expired."})
		}
		return h.internalError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) CompletePasswordReset(c echo.Context) error {
	req := new(passwordResetCompleteRequest)
	if err := c.Bind(req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "invalid payload"})
	}
	if err := h.resets.CompleteReset(c.Request().Context(), req.UserID, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrResetInvalid) {
			return c.JSON(http.StatusBadRequest, map[string]string{"errorMessage": "Reset link is invalid or expired."})
		}
		return h.internalError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// internalError logs the cause and answers with a generic message so
// storage details never leak to the caller.
func (h *AuthHandler) internalError(c echo.Context, err error) error {
	h.logger.Error(c.Request().Context(), "request failed",
		"path", c.Path(), "error", err.Error())
	return c.JSON(http.StatusInternalServerError, map[string]string{"errorMessage": msgInternalError})
}
