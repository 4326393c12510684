package paymentprovider

// CreateSessionParams — параметры создания checkout-сессии.
// Метаданные сохраняются у провайдера и возвращаются в вебхуке без изменений.
type CreateSessionParams struct {
	ProductName string            // Название позиции на странице оплаты
	AmountCents int64             // Сумма в минимальных единицах валюты
	Currency    string            // Код валюты, например "usd"
	SuccessURL  string            // Куда вернуть пользователя после оплаты
	CancelURL   string            // Куда вернуть пользователя при отмене
	Metadata    map[string]string // Произвольные данные о покупке
}

// CheckoutSession — ответ провайдера при создании сессии.
type CheckoutSession struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"` // unix-время истечения сессии
	Currency  string `json:"currency"`
}

// Event — событие вебхука платёжного провайдера.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

// EventObject — объект внутри события; для checkout.session.completed
// это сама сессия с метаданными, записанными при создании.
type EventObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// EventCheckoutCompleted — тип события успешно завершённой оплаты.
const EventCheckoutCompleted = "checkout.session.completed"
