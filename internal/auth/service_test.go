package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// --- モック定義 ---

type mockProfileRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.Profile, error)
	findByEmailFn func(ctx context.Context, email string) (*model.Profile, error)
	createFn      func(ctx context.Context, profile *model.Profile) error
	listFn        func(ctx context.Context) ([]*model.Profile, error)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
	deleteExpiredFn  func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

// --- compile-time interface checks ---
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// --- テスト ---

func TestSignUp_NewEmail_CreatesProfileAndSession(t *testing.T) {
	var createdProfile *model.Profile
	var createdSession *model.Session

	profileRepo := &mockProfileRepo{
		createFn: func(_ context.Context, profile *model.Profile) error {
			createdProfile = profile
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}
	svc := NewService(profileRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.SignUp(context.Background(), "taro@example.com", "password123", "山田太郎")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if createdProfile == nil {
		t.Fatal("expected profile to be created")
	}
	if createdProfile.Email != "taro@example.com" {
		t.Errorf("Email = %q, want %q", createdProfile.Email, "taro@example.com")
	}
	if createdProfile.FullName != "山田太郎" {
		t.Errorf("FullName = %q, want %q", createdProfile.FullName, "山田太郎")
	}
	if createdProfile.IsAdmin {
		t.Error("new profile should not be admin")
	}
	if createdProfile.MembershipTier != model.MembershipTierStandard {
		t.Errorf("MembershipTier = %q, want %q", createdProfile.MembershipTier, model.MembershipTierStandard)
	}
	// パスワードはbcryptハッシュとして保存される
	if err := bcrypt.CompareHashAndPassword([]byte(createdProfile.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != createdProfile.ID {
		t.Errorf("session UserID = %q, want %q", session.UserID, createdProfile.ID)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestSignUp_ExistingEmail_ReturnsEmailTakenError(t *testing.T) {
	profileRepo := &mockProfileRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return &model.Profile{ID: "existing-user", Email: "taro@example.com"}, nil
		},
	}
	svc := NewService(profileRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.SignUp(context.Background(), "taro@example.com", "password123", "山田太郎")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeEmailTaken)
	}
}

func TestSignIn_CorrectPassword_ReturnsSession(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	profileRepo := &mockProfileRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return &model.Profile{ID: "user-1", Email: "taro@example.com", PasswordHash: string(hash)}, nil
		},
	}
	svc := NewService(profileRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.SignIn(context.Background(), "taro@example.com", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", session.UserID, "user-1")
	}
}

func TestSignIn_WrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	profileRepo := &mockProfileRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return &model.Profile{ID: "user-1", PasswordHash: string(hash)}, nil
		},
	}
	svc := NewService(profileRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.SignIn(context.Background(), "taro@example.com", "wrong-password")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestSignIn_UnknownEmail_ReturnsSameErrorAsWrongPassword(t *testing.T) {
	// プロフィール不在とパスワード不一致を区別しない
	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.SignIn(context.Background(), "nobody@example.com", "password123")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestSignOut_DeletesSession(t *testing.T) {
	deletedID := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(&mockProfileRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.SignOut(context.Background(), "session-abc"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deletedID != "session-abc" {
		t.Errorf("deleted session ID = %q, want %q", deletedID, "session-abc")
	}
}

func TestSignOut_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.SignOut(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID, got nil")
	}
}

func TestGetSession_AbsentSession_ReturnsNilNil(t *testing.T) {
	// セッション不在は参照失敗と区別して(nil, nil)で返す
	svc := NewService(&mockProfileRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.GetSession(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session != nil {
		t.Errorf("expected nil session, got %+v", session)
	}
}

func TestGetSession_EmptyID_ReturnsNilNil(t *testing.T) {
	called := false
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			called = true
			return nil, nil
		},
	}
	svc := NewService(&mockProfileRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.GetSession(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session != nil {
		t.Errorf("expected nil session, got %+v", session)
	}
	if called {
		t.Error("repository should not be queried for empty session ID")
	}
}

func TestGetSession_LookupFailure_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, errors.New("database connection lost")
		},
	}
	svc := NewService(&mockProfileRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetSession(context.Background(), "session-abc")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGetProfile_LookupFailure_ReturnsNilWithoutPropagating(t *testing.T) {
	// プロフィール参照失敗はログのみで、呼び出し側にはnil（非管理者扱い）を返す
	profileRepo := &mockProfileRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Profile, error) {
			return nil, errors.New("database connection lost")
		},
	}
	svc := NewService(profileRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	if profile := svc.GetProfile(context.Background(), "user-1"); profile != nil {
		t.Errorf("expected nil profile, got %+v", profile)
	}
}

func TestGetProfile_Found_ReturnsProfile(t *testing.T) {
	profileRepo := &mockProfileRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, IsAdmin: true}, nil
		},
	}
	svc := NewService(profileRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	profile := svc.GetProfile(context.Background(), "user-1")
	if profile == nil {
		t.Fatal("expected profile, got nil")
	}
	if !profile.IsAdmin {
		t.Error("expected admin profile")
	}
}
