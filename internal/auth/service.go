// Package auth はメール+パスワード認証、セッション管理、管理者アクセス判定を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
// メールアドレスが登録済みの場合はEmailTakenエラーを返す。
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	existing, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	profile := &model.Profile{
		ID:             uuid.New().String(),
		FullName:       fullName,
		Email:          email,
		PasswordHash:   string(hash),
		IsAdmin:        false,
		LoyaltyPoints:  0,
		MembershipTier: model.MembershipTierStandard,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", profile.ID),
		slog.String("email", email),
	)

	session, err := s.createSession(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// SignIn はメールアドレスとパスワードを検証し、セッションを発行する。
// プロフィール不在とパスワード不一致は区別せず、同一のエラーを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", profile.ID))
	return session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// GetSession はセッションIDからセッションを解決する。
// セッション不在・期限切れは(nil, nil)を返し、参照系の失敗（err != nil）とは
// 区別される。呼び出し側は両者を混同してはならない。
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// GetProfile はユーザーIDからプロフィールを取得する。
// 参照に失敗した場合はログに記録してnilを返す。nilプロフィールは
// 非管理者として扱われ、エラーが権限判定の呼び出し側へ伝播することはない。
func (s *Service) GetProfile(ctx context.Context, userID string) *model.Profile {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		slog.Error("profile lookup failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("code", model.ErrCodeProfileLookupFailed),
		)
		return nil
	}
	return profile
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
