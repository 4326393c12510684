package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSignature возвращается, когда подпись вебхука не прошла проверку.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature проверяет заголовок Stripe-Signature формата "t=...,v1=...".
// Подпись — HMAC-SHA256 от строки "<t>.<payload>" на секрете вебхука.
// Сравнение выполняется за постоянное время.
func VerifySignature(payload []byte, header, secret string) error {
	const op = "paymentprovider.VerifySignature"

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
}

// SignPayload формирует значение заголовка Stripe-Signature для данного
// payload. Используется в тестах для подготовки корректно подписанных событий.
func SignPayload(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
