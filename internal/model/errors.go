// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, commerce, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken             = "EMAIL_TAKEN"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeProfileLookupFailed    = "PROFILE_LOOKUP_FAILED"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound       = "CATEGORY_NOT_FOUND"
	ErrCodeCartItemNotFound       = "CART_ITEM_NOT_FOUND"
	ErrCodeCartEmpty              = "CART_EMPTY"
	ErrCodeOrderCreationFailed    = "ORDER_CREATION_FAILED"
	ErrCodeOrderItemsFailed       = "ORDER_ITEMS_CREATION_FAILED"
	ErrCodeCartClearFailed        = "CART_CLEAR_FAILED"
)

// NewAuthenticationRequiredError は未認証での変更操作エラーを生成する。
// 操作は中断され、リトライは行わない。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewValidationError は配送先フォームの形式違反エラーを生成する。
// fieldには最初に違反が検出されたフィールド名を指定する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", field),
		Category: "validation",
		Action:   "該当項目を修正してから再度送信してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "commerce",
		Action:   "商品が販売終了になっていないか確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: "commerce",
		Action:   "カテゴリ一覧から選び直してください。",
	}
}

// NewCartItemNotFoundError はカート行未検出エラーを生成する。
// 他ユーザーの行を指定した場合も存在を秘匿するため同じエラーを返す。
func NewCartItemNotFoundError(cartItemID string) *APIError {
	return &APIError{
		Code:     ErrCodeCartItemNotFound,
		Message:  fmt.Sprintf("指定されたカート行が見つかりません: %s", cartItemID),
		Category: "commerce",
		Action:   "カートを再読み込みしてください。",
	}
}

// NewCartEmptyError は空カートでのチェックアウトエラーを生成する。
func NewCartEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeCartEmpty,
		Message:  "カートが空のため注文できません。",
		Category: "commerce",
		Action:   "商品をカートに追加してから再度お試しください。",
	}
}

// NewOrderCreationFailedError は注文レコード作成失敗エラーを生成する。
// ユーザー向けメッセージは段階を区別しない汎用文言とし、段階の区別は
// Codeのみで保持する（ORDER_ITEMS_CREATION_FAILED / CART_CLEAR_FAILED も同様）。
func NewOrderCreationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOrderCreationFailed,
		Message:  "注文の処理に失敗しました。",
		Category: "commerce",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewOrderItemsFailedError は注文明細作成失敗エラーを生成する。
func NewOrderItemsFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOrderItemsFailed,
		Message:  "注文の処理に失敗しました。",
		Category: "commerce",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCartClearFailedError はカートクリア失敗エラーを生成する。
func NewCartClearFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCartClearFailed,
		Message:  "注文の処理に失敗しました。",
		Category: "commerce",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
