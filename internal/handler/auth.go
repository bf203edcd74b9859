package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/Felicien407/car-rental-system/internal/config"
	"github.com/Felicien407/car-rental-system/internal/middleware"
	"github.com/Felicien407/car-rental-system/internal/model"
	"github.com/Felicien407/car-rental-system/internal/repository"
	"github.com/Felicien407/car-rental-system/internal/utils"
)

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func authError(c echo.Context, status int, msg string) error {
	code := "UNAUTHORIZED"
	switch status {
	case http.StatusBadRequest:
		code = "INVALID_BODY"
	case http.StatusConflict:
		code = "EMAIL_EXISTS"
	case http.StatusInternalServerError:
		code = "INTERNAL"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// issue signs an access token for u; refresh is stored by the caller.
func (h *AuthHandler) issue(u model.User, refresh utils.RefreshToken) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Name, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// newSession issues and stores a fresh token pair for u.
func (h *AuthHandler) newSession(ctx context.Context, u model.User) (authResp, error) {
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return h.issue(u, refresh)
}

// Register creates a CUSTOMER account and returns tokens immediately.
// Administrators are only created by the seed command.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if handled, err := bindValid(c, &req); handled {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return authError(c, http.StatusConflict, "email already exists")
		}
		log.Errorf("auth: create user: %v", err)
		return authError(c, http.StatusInternalServerError, "create user failed")
	}
	u := model.User{
		ID:    uid,
		Name:  strings.TrimSpace(req.Name),
		Email: repository.NormalizeEmail(req.Email),
		Role:  model.RoleCustomer,
	}
	resp, err := h.newSession(ctx, u)
	if err != nil {
		log.Errorf("auth: issue tokens: %v", err)
		return authError(c, http.StatusInternalServerError, "issue tokens failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if handled, err := bindValid(c, &req); handled {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authError(c, http.StatusUnauthorized, "invalid credentials")
		}
		log.Errorf("auth: load user: %v", err)
		return authError(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return authError(c, http.StatusUnauthorized, "invalid credentials")
	}
	resp, err := h.newSession(ctx, u)
	if err != nil {
		log.Errorf("auth: issue tokens: %v", err)
		return authError(c, http.StatusInternalServerError, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a live refresh token for a new pair.  The old token is
// revoked in the same transaction.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return authError(c, http.StatusBadRequest, "refresh_token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authError(c, http.StatusInternalServerError, "issue refresh failed")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.Tokens.Rotate(ctx, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authError(c, http.StatusUnauthorized, "invalid refresh")
		}
		log.Errorf("auth: rotate refresh: %v", err)
		return authError(c, http.StatusInternalServerError, "rotate refresh failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return authError(c, http.StatusUnauthorized, "invalid refresh")
	}
	resp, err := h.issue(u, next)
	if err != nil {
		return authError(c, http.StatusInternalServerError, "issue access failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when no body token is given.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		found, err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
		if err != nil {
			return authError(c, http.StatusInternalServerError, "logout failed")
		}
		if !found {
			return authError(c, http.StatusUnauthorized, "invalid refresh token")
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return authError(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return authError(c, http.StatusUnauthorized, "invalid token")
	}
	uid, _ := claims.UserID()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return authError(c, http.StatusInternalServerError, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	who, ok := middleware.Actor(c)
	if !ok {
		return authError(c, http.StatusUnauthorized, "unauthorized")
	}
	u, err := h.Users.GetByID(c.Request().Context(), who.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authError(c, http.StatusUnauthorized, "unknown user")
		}
		return authError(c, http.StatusInternalServerError, "load user failed")
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
}
