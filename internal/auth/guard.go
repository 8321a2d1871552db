package auth

import (
	"context"
	"strings"

	"github.com/hitoshi/lumina/internal/model"
)

// GuardState は管理画面アクセス判定の状態を表す。
type GuardState int

const (
	// GuardPending はアイデンティティの解決が確定できなかった状態。
	// 保護対象は公開されず、リダイレクトも行わない。
	GuardPending GuardState = iota
	// GuardUnauthenticated はセッションが存在しない状態。
	GuardUnauthenticated
	// GuardUnauthorized は認証済みだが管理者ではない状態。
	GuardUnauthorized
	// GuardAuthorized は管理者アクセスが許可された状態。
	GuardAuthorized
)

// String はGuardStateの文字列表現を返す。
func (g GuardState) String() string {
	switch g {
	case GuardPending:
		return "pending"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardUnauthorized:
		return "unauthorized"
	case GuardAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// SessionResolver はセッションとプロフィールを解決するインターフェース。
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetProfile(ctx context.Context, userID string) *model.Profile
}

// Guard は二重権限モデルに基づく管理画面アクセス判定を行う。
// 通常経路: セッション → プロフィールのis_admin。
// バイパス経路: 署名付きオーバーライドトークン。トークンが有効なら
// リモートプロフィールの状態に関わらずauthorizedとなる。
// バイパスは設定スイッチが有効な場合のみ機能する。
type Guard struct {
	resolver SessionResolver
	override *OverrideIssuer // nilの場合バイパス経路は常に無効
}

// NewGuard はGuardを生成する。overrideがnilの場合、バイパス経路は無効。
func NewGuard(resolver SessionResolver, override *OverrideIssuer) *Guard {
	return &Guard{resolver: resolver, override: override}
}

// Resolve はセッションIDとオーバーライドトークンから判定状態を返す。
//   - オーバーライドトークンが有効 → authorized（セッション不問）
//   - セッション解決に失敗 → pending
//   - セッション不在 → unauthenticated
//   - プロフィール不在または非管理者 → unauthorized
//   - is_admin → authorized
func (g *Guard) Resolve(ctx context.Context, sessionID, overrideToken string) GuardState {
	if g.override != nil && overrideToken != "" {
		if g.override.Verify(overrideToken) {
			return GuardAuthorized
		}
	}

	session, err := g.resolver.GetSession(ctx, sessionID)
	if err != nil {
		return GuardPending
	}
	if session == nil {
		return GuardUnauthenticated
	}

	profile := g.resolver.GetProfile(ctx, session.UserID)
	if profile == nil || !profile.IsAdmin {
		return GuardUnauthorized
	}

	return GuardAuthorized
}

// IsAdminPath はパスの最後の非空セグメントが"admin"（大文字小文字不問）かを判定する。
// 末尾スラッシュによる空セグメントは無視する。"/administrator"のような
// 部分一致は対象外。
func IsAdminPath(path string) bool {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			continue
		}
		return strings.EqualFold(segments[i], "admin")
	}
	return false
}
