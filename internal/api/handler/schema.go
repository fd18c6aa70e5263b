package handler

import (
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
	Role      string `json:"role"       validate:"omitempty,oneof=Client Booster"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// --- Orders ---

// createOrderRequest carries the price as a string so no precision is lost
// on the way in.
type createOrderRequest struct {
	ClientID       string `json:"client_id"`
	Price          string `json:"price"           validate:"required,decimal"`
	Type           string `json:"type"            validate:"required,max=100"`
	AccountLogin   string `json:"account_login"   validate:"max=200"`
	AdditionalInfo string `json:"additional_info" validate:"max=2000"`
	Publish        bool   `json:"publish"`
}

type assignBoosterRequest struct {
	BoosterID string `json:"booster_id" validate:"required"`
}

// updateOrderRequest edits descriptive fields. Absent fields are kept.
type updateOrderRequest struct {
	Type           *string `json:"type"            validate:"omitempty,max=100"`
	AccountLogin   *string `json:"account_login"   validate:"omitempty,max=200"`
	AdditionalInfo *string `json:"additional_info" validate:"omitempty,max=2000"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,max=2000"`
}

type listOrdersResponse struct {
	Data  []*domain.Order `json:"data"`
	Count int             `json:"count"`
}

type completeOrderResponse struct {
	Order  *domain.Order   `json:"order"`
	Wallet decimal.Decimal `json:"wallet"`
}

// --- Wallet ---

type fundsRequest struct {
	Amount string `json:"amount" validate:"required,decimal"`
}

type walletResponse struct {
	BoosterID string          `json:"booster_id"`
	Wallet    decimal.Decimal `json:"wallet"`
}

type listUsersResponse struct {
	Data  []*domain.User `json:"data"`
	Count int            `json:"count"`
}

// --- Users ---

type createUserRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
	Role      string `json:"role"       validate:"required,oneof=Client Booster Admin"`
}

// updateUserRequest has no role or wallet field; such keys in the body are
// ignored.
type updateUserRequest struct {
	Email     *string `json:"email"      validate:"omitempty,email"`
	Password  *string `json:"password"   validate:"omitempty,min=8"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=100"`
}

// --- Chat ---

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
	Nonce   string `json:"nonce"   validate:"max=128"`
}

type listMessagesResponse struct {
	Data  []*domain.Message `json:"data"`
	Count int               `json:"count"`
}
