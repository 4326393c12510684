// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля и статус подтверждения почты.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID                int        `json:"id"`          // Уникальный идентификатор пользователя
	Username          string     `json:"username"`    // Имя пользователя (уникальное)
	Email             string     `json:"email"`       // Электронная почта (уникальная)
	PasswordHash      string     `json:"-"`           // Хэш пароля пользователя
	Role              string     `json:"role"`        // Роль пользователя, admin или user
	IsVerified        bool       `json:"is_verified"` // Подтверждена ли электронная почта
	VerificationToken *string    `json:"-"`           // Одноразовый токен подтверждения почты
	LastLogin         *time.Time `json:"last_login"`  // Время последнего входа
	CreatedAt         time.Time  `json:"created_at"`  // Время создания учётной записи
}

// VerificationEmail описывает сообщение для письма с подтверждением почты.
// Публикуется в очередь при регистрации и при повторной отправке токена.
type VerificationEmail struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}
