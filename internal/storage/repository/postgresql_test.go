package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeevsm/servergate/internal/models"
)

func TestStorage_RegisterUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	token := "tok-register-1"
	user := models.User{
		Username:          "alice",
		Email:             "alice@example.com",
		PasswordHash:      "hashedpassword",
		Role:              "user",
		VerificationToken: &token,
	}

	t.Run("успешная регистрация", func(t *testing.T) {
		id, err := storage.RegisterUser(ctx, user)
		require.NoError(t, err)
		assert.Positive(t, id)

		got, err := storage.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.False(t, got.IsVerified)
		require.NotNil(t, got.VerificationToken)
		assert.Equal(t, token, *got.VerificationToken)
	})

	t.Run("повторное имя пользователя", func(t *testing.T) {
		dup := user
		dup.Email = "other@example.com"
		_, err := storage.RegisterUser(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("повторный email", func(t *testing.T) {
		dup := user
		dup.Username = "bob"
		_, err := storage.RegisterUser(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestStorage_ConsumeVerificationToken(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	token := "tok-verify-1"
	id, err := storage.RegisterUser(ctx, models.User{
		Username:          "carol",
		Email:             "carol@example.com",
		PasswordHash:      "hashedpassword",
		Role:              "user",
		VerificationToken: &token,
	})
	require.NoError(t, err)

	t.Run("токен подтверждает почту", func(t *testing.T) {
		gotID, err := storage.ConsumeVerificationToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, id, gotID)

		user, err := storage.GetUser(ctx, id)
		require.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.Nil(t, user.VerificationToken)
	})

	t.Run("повторное использование токена", func(t *testing.T) {
		_, err := storage.ConsumeVerificationToken(ctx, token)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("неизвестный токен", func(t *testing.T) {
		_, err := storage.ConsumeVerificationToken(ctx, "no-such-token")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStorage_ListAvailableServers(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	srvActive := factory.CreateServer(t, "rust-main", admin)
	srvExpired := factory.CreateServer(t, "rust-second", admin)
	factory.CreateServer(t, "minecraft", admin)

	factory.CreateSubscription(t, buyer, srvActive, time.Now().Add(24*time.Hour))
	factory.CreateSubscription(t, buyer, srvExpired, time.Now().Add(-24*time.Hour))

	servers, err := storage.ListAvailableServers(ctx, buyer)
	require.NoError(t, err)

	names := make([]string, 0, len(servers))
	for _, srv := range servers {
		names = append(names, srv.Name)
	}
	assert.NotContains(t, names, "rust-main", "сервер с активной подпиской должен быть скрыт")
	assert.Contains(t, names, "rust-second", "истёкшая подписка не скрывает сервер")
	assert.Contains(t, names, "minecraft")
}

func TestStorage_HasActiveSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	srv := factory.CreateServer(t, "rust-main", admin)

	t.Run("без подписки", func(t *testing.T) {
		active, err := storage.HasActiveSubscription(ctx, buyer, srv)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("истёкшая подписка не считается активной", func(t *testing.T) {
		factory.CreateSubscription(t, buyer, srv, time.Now().Add(-time.Hour))
		active, err := storage.HasActiveSubscription(ctx, buyer, srv)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("активная подписка", func(t *testing.T) {
		factory.CreateSubscription(t, buyer, srv, time.Now().Add(time.Hour))
		active, err := storage.HasActiveSubscription(ctx, buyer, srv)
		require.NoError(t, err)
		assert.True(t, active)
	})
}

func TestStorage_ReconcileCheckout(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	srv := factory.CreateServer(t, "rust-main", admin)
	codeID := factory.CreateDiscountCode(t, "WELCOME10", nil, 5, 10, time.Now().Add(24*time.Hour))

	now := time.Now().UTC()
	sub := models.Subscription{
		UserID:    buyer,
		ServerID:  srv,
		StartDate: now,
		ExpiresAt: now.AddDate(0, 1, 0),
		Paid:      true,
		ViaCoupon: true,
	}

	t.Run("первая обработка события", func(t *testing.T) {
		created, err := storage.ReconcileCheckout(ctx, "evt_1", sub, &codeID)
		require.NoError(t, err)
		assert.True(t, created)

		active, err := storage.HasActiveSubscription(ctx, buyer, srv)
		require.NoError(t, err)
		assert.True(t, active)

		usages, err := storage.CountDiscountCodeUsages(ctx, codeID)
		require.NoError(t, err)
		assert.Equal(t, 1, usages)
	})

	t.Run("повторная доставка того же события", func(t *testing.T) {
		created, err := storage.ReconcileCheckout(ctx, "evt_1", sub, &codeID)
		require.NoError(t, err)
		assert.False(t, created)

		var count int
		err = storage.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND server_id = $2`,
			buyer, srv).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "дубликат события не должен создавать вторую подписку")

		usages, err := storage.CountDiscountCodeUsages(ctx, codeID)
		require.NoError(t, err)
		assert.Equal(t, 1, usages)
	})

	t.Run("новое событие при уже активной подписке", func(t *testing.T) {
		created, err := storage.ReconcileCheckout(ctx, "evt_2", sub, nil)
		require.NoError(t, err)
		assert.True(t, created, "событие фиксируется даже если подписка уже есть")

		var count int
		err = storage.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND server_id = $2`,
			buyer, srv).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "условная вставка не создаёт вторую активную подписку")
	})
}

func TestStorage_FindValidDiscountCode(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	srvA := factory.CreateServer(t, "rust-main", admin)
	srvB := factory.CreateServer(t, "minecraft", admin)

	factory.CreateDiscountCode(t, "GLOBAL5", nil, 5, 10, time.Now().Add(24*time.Hour))
	factory.CreateDiscountCode(t, "RUSTONLY", &srvA, 3, 10, time.Now().Add(24*time.Hour))
	factory.CreateDiscountCode(t, "EXPIRED", nil, 5, 10, time.Now().Add(-time.Hour))

	t.Run("глобальный код применим к любому серверу", func(t *testing.T) {
		code, err := storage.FindValidDiscountCode(ctx, "GLOBAL5", srvB)
		require.NoError(t, err)
		assert.Equal(t, 5, code.DiscountAmount)
		assert.Nil(t, code.ServerID)
	})

	t.Run("код сервера применим только к нему", func(t *testing.T) {
		code, err := storage.FindValidDiscountCode(ctx, "RUSTONLY", srvA)
		require.NoError(t, err)
		require.NotNil(t, code.ServerID)
		assert.Equal(t, srvA, *code.ServerID)

		_, err = storage.FindValidDiscountCode(ctx, "RUSTONLY", srvB)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("просроченный код не находится", func(t *testing.T) {
		_, err := storage.FindValidDiscountCode(ctx, "EXPIRED", srvA)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStorage_RecordDiscountCodeUsage(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	codeID := factory.CreateDiscountCode(t, "ONCE", nil, 5, 1, time.Now().Add(24*time.Hour))

	recorded, err := storage.RecordDiscountCodeUsage(ctx, codeID, buyer)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = storage.RecordDiscountCodeUsage(ctx, codeID, buyer)
	require.NoError(t, err)
	assert.False(t, recorded, "повторное использование тем же пользователем не записывается")

	usages, err := storage.CountDiscountCodeUsages(ctx, codeID)
	require.NoError(t, err)
	assert.Equal(t, 1, usages)

	used, err := storage.HasUserUsedDiscountCode(ctx, codeID, buyer)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestStorage_RemoveSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	srv := factory.CreateServer(t, "rust-main", admin)
	subID := factory.CreateSubscription(t, buyer, srv, time.Now().Add(time.Hour))

	t.Run("успешное удаление", func(t *testing.T) {
		count, err := storage.RemoveSubscription(ctx, subID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		active, err := storage.HasActiveSubscription(ctx, buyer, srv)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("удаление несуществующей подписки", func(t *testing.T) {
		count, err := storage.RemoveSubscription(ctx, subID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStorage_ServerNameExists(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	srvID := factory.CreateServer(t, "rust-main", admin)

	t.Run("имя занято другим сервером", func(t *testing.T) {
		exists, err := storage.ServerNameExists(ctx, "rust-main", 0)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("собственное имя при обновлении не считается занятым", func(t *testing.T) {
		exists, err := storage.ServerNameExists(ctx, "rust-main", srvID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("свободное имя", func(t *testing.T) {
		exists, err := storage.ServerNameExists(ctx, "minecraft", 0)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestStorage_ListAllSubscriptions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	admin := factory.CreateUser(t, "admin", "admin@example.com")
	buyer := factory.CreateUser(t, "buyer", "buyer@example.com")
	srv := factory.CreateServer(t, "rust-main", admin)
	factory.CreateSubscription(t, buyer, srv, time.Now().Add(time.Hour))
	factory.CreateSubscription(t, admin, srv, time.Now().Add(2*time.Hour))

	subs, err := storage.ListAllSubscriptions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "rust-main", subs[0].ServerName)

	page, err := storage.ListAllSubscriptions(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestStorage_GetServer_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetServer(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
