package models

import "time"

// DiscountCode представляет код скидки на фиксированную сумму.
// ServerID может быть nil — такой код применим к любому серверу.
type DiscountCode struct {
	ID             int       `json:"id"`
	Code           string    `json:"code"`
	ServerID       *int      `json:"server_id"`
	DiscountAmount int       `json:"discount_amount"`
	ExpiresAt      time.Time `json:"expires_at"`
	MaxUses        int       `json:"max_uses"`
	CreatedBy      *int      `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// DiscountCodeUsage фиксирует факт использования кода пользователем.
// Пара (discount_code_id, user_id) уникальна: один пользователь может
// применить конкретный код не более одного раза.
type DiscountCodeUsage struct {
	ID             int       `json:"id"`
	DiscountCodeID int       `json:"discount_code_id"`
	UserID         int       `json:"user_id"`
	UsedAt         time.Time `json:"used_at"`
}

// DummyDiscountCode используется для приёма данных из JSON-запроса
// на генерацию кода скидки.
type DummyDiscountCode struct {
	ServerID       int    `json:"server_id,omitempty"`
	DiscountAmount int    `json:"discount_amount" validate:"required,gt=0"`
	ExpiresAt      string `json:"expires_at" validate:"required"`
	MaxUses        int    `json:"max_uses" validate:"required,gte=1"`
}
