package models

import "time"

// Server представляет ресурс, на который пользователи оформляют подписку.
// Имя сервера уникально, запись принадлежит создавшему её администратору.
type Server struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	UserID      int       `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// DummyServer используется для приёма данных из JSON-запроса
// на создание или обновление сервера.
type DummyServer struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description,omitempty"`
}
