package subscribe

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/avdeevsm/servergate/internal/http/middlewarectx"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/services/discount"
	"github.com/avdeevsm/servergate/internal/services/subscription"
)

// MockService реализует интерфейс subscribe.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Initiate(ctx context.Context, userID, serverID, months int, discountCode string) (*models.CheckoutSession, error) {
	args := m.Called(ctx, userID, serverID, months, discountCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

func TestSubscribeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	session := &models.CheckoutSession{
		SessionID:   "cs_test_1",
		CheckoutURL: "https://checkout.stripe.com/pay/cs_test_1",
		ExpiresAt:   time.Now().Add(30 * time.Minute),
		Amount:      30,
		Currency:    "usd",
	}

	tests := []struct {
		name           string
		body           string
		userID         int
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "успешное создание сессии",
			body:   `{"server_id":5,"months":3}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 3, "").Return(session, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"sessionId":"cs_test_1"`,
		},
		{
			name:   "код скидки передаётся сервису",
			body:   `{"server_id":5,"months":6,"discount_code":"SAVE15"}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 6, "SAVE15").Return(session, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{invalid`,
			userID:         42,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "отсутствует server_id",
			body:           `{"months":3}`,
			userID:         42,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "нет пользователя в контексте",
			body:           `{"server_id":5,"months":3}`,
			userID:         0,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:   "сервер не найден",
			body:   `{"server_id":99,"months":3}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 99, 3, "").Return(nil, subscription.ErrServerNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"server not found"`,
		},
		{
			name:   "недопустимый срок",
			body:   `{"server_id":5,"months":4}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 4, "").Return(nil, subscription.ErrInvalidDuration)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"months must be 1, 3, 6 or 12"`,
		},
		{
			name:   "подписка уже активна",
			body:   `{"server_id":5,"months":3}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 3, "").Return(nil, subscription.ErrAlreadySubscribed)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:   "код скидки уже использован",
			body:   `{"server_id":5,"months":3,"discount_code":"SAVE15"}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 3, "SAVE15").Return(nil, discount.ErrCodeAlreadyUsed)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"discount code already used by this user"`,
		},
		{
			name:   "нулевая итоговая цена",
			body:   `{"server_id":5,"months":1,"discount_code":"SAVE10"}`,
			userID: 42,
			setupMock: func(m *MockService) {
				m.On("Initiate", mock.Anything, 42, 5, 1, "SAVE10").Return(nil, subscription.ErrInvalidAmount)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid subscription amount"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(tt.body))
			if tt.userID != 0 {
				ctx := context.WithValue(req.Context(), middlewarectx.UserID, tt.userID)
				req = req.WithContext(ctx)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
