// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はサービス利用ユーザーのプロフィールを表す。
// is_adminは管理者権限のリモート側の唯一の根拠であり、本コアからは読み取り専用。
type Profile struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	IsAdmin        bool      `json:"is_admin"`
	LoyaltyPoints  int       `json:"loyalty_points"`
	MembershipTier string    `json:"membership_tier"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session はユーザーのログインセッションを表す。
// ライフサイクルはアイデンティティプロバイダー（authパッケージ）が所有し、
// 他のコンポーネントは読み取りのみを行う。
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// 会員ティアの定義済み値。
const (
	MembershipTierStandard = "standard"
	MembershipTierGold     = "gold"
	MembershipTierPlatinum = "platinum"
)
