// Package models содержит доменные структуры, описывающие подписку,
// а также вспомогательные типы для работы с данными из внешних источников (например, JSON-запросы).
package models

import "time"

// Subscription представляет собой оплаченный доступ пользователя к серверу.
// Подписка считается активной, пока ExpiresAt строго больше текущего момента.
// Запись создаётся только после подтверждения оплаты вебхуком.
type Subscription struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ServerID  int       `json:"server_id"`
	StartDate time.Time `json:"start_date"`
	ExpiresAt time.Time `json:"expires_at"`
	Paid      bool      `json:"paid"`
	ViaCoupon bool      `json:"via_coupon"`
}

// SubscriptionInfo расширяет подписку данными пользователя и сервера
// для административных списков.
type SubscriptionInfo struct {
	Subscription
	Username   string `json:"username"`
	Email      string `json:"email"`
	ServerName string `json:"server_name"`
}

// DummySubscribe используется для приёма данных из JSON-запроса на оформление подписки.
// Код скидки необязателен.
type DummySubscribe struct {
	ServerID     int    `json:"server_id" validate:"required,gt=0"`
	Months       int    `json:"months" validate:"required"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// CheckoutSession описывает созданную у платёжного провайдера сессию оплаты.
// До подтверждения оплаты сессия остаётся единственной записью о намерении:
// в базу данных на этом этапе ничего не пишется.
type CheckoutSession struct {
	SessionID   string    `json:"sessionId"`
	CheckoutURL string    `json:"checkoutUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Amount      int       `json:"amount"`
	Currency    string    `json:"currency"`
}

// CheckoutMetadata — данные о покупке, сохранённые в метаданных платёжной сессии.
// При обработке вебхука они являются единственным источником истины о том,
// что именно было куплено.
type CheckoutMetadata struct {
	UserID       int
	ServerID     int
	Months       int
	DiscountCode string
	ViaCoupon    bool
}
