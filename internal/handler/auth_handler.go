// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/lumina/internal/middleware"
	"github.com/hitoshi/lumina/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetProfile(ctx context.Context, userID string) *model.Profile
}

// OverrideTokenIssuer は管理者オーバーライドトークンの発行インターフェース。
// オーバーライドスイッチが無効な場合はnilにする。
type OverrideTokenIssuer interface {
	Issue(userID string) (string, error)
	TTL() time.Duration
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
// 管理者のサインイン時、オーバーライド発行者が設定されていれば
// セッションCookieに加えてオーバーライドトークンCookieを発行する。
type AuthHandler struct {
	service  AuthServiceInterface
	override OverrideTokenIssuer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。overrideはnil可。
func NewAuthHandler(service AuthServiceInterface, override OverrideTokenIssuer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		override: override,
		config:   config,
	}
}

// signUpRequest はサインアップリクエストのボディ。
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	IsAdmin        bool   `json:"is_admin"`
	LoyaltyPoints  int    `json:"loyalty_points"`
	MembershipTier string `json:"membership_tier"`
}

// SignUp は新規ユーザー登録を処理する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if err := validateCredentials(req.Email, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	session, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	h.issueOverrideIfAdmin(w, r.Context(), session.UserID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id": session.UserID,
	})
}

// SignIn はサインインを処理する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	h.issueOverrideIfAdmin(w, r.Context(), session.UserID)

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": session.UserID,
	})
}

// SignOut はセッションを破棄する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// サインアウト失敗してもCookieはクリアする
		}
	}

	h.clearCookie(w, middleware.SessionCookieName, true)
	h.clearCookie(w, middleware.OverrideCookieName, true)

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	session, err := h.service.GetSession(r.Context(), cookie.Value)
	if err != nil || session == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	profile := h.service.GetProfile(r.Context(), session.UserID)
	if profile == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:             profile.ID,
		Email:          profile.Email,
		FullName:       profile.FullName,
		IsAdmin:        profile.IsAdmin,
		LoyaltyPoints:  profile.LoyaltyPoints,
		MembershipTier: profile.MembershipTier,
	})
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// issueOverrideIfAdmin は管理者ユーザーに対してオーバーライドトークン
// Cookieを発行する。発行者が未設定、または非管理者の場合は何もしない。
func (h *AuthHandler) issueOverrideIfAdmin(w http.ResponseWriter, ctx context.Context, userID string) {
	if h.override == nil {
		return
	}

	profile := h.service.GetProfile(ctx, userID)
	if profile == nil || !profile.IsAdmin {
		return
	}

	token, err := h.override.Issue(userID)
	if err != nil {
		slog.Error("failed to issue override token",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
		)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.OverrideCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.override.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("admin override token issued", slog.String("user_id", userID))
}

// clearCookie はCookieを削除する。
func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// validateCredentials はサインアップ時の入力形式を検証する。
func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return model.NewValidationError("email")
	}
	if len(password) < 8 {
		return model.NewValidationError("password")
	}
	return nil
}
