package mw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const TemplateCtxKey contextKey = "loaded_order"

// TemplateCookie is the session-scoped slot the saved-orders view writes and
// the processor view reads. It carries only the order id; the order itself
// stays in the active store.
const TemplateCookie = "loadedOrder"

const templateTTL = time.Hour

// IssueTemplateToken signs orderID for the hand-off cookie.
func IssueTemplateToken(orderID, secret string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   orderID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(templateTTL)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign template: %w", err)
	}
	return signed, nil
}

// SetTemplateCookie points the hand-off cookie at orderID.
func SetTemplateCookie(w http.ResponseWriter, orderID, secret string) error {
	token, err := IssueTemplateToken(orderID, secret, time.Now())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TemplateCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func ClearTemplateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TemplateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func parseTemplateToken(tokenString, secret string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid template token")
	}
	return claims.Subject, nil
}

// TemplateMiddleware puts the order id carried by a valid hand-off cookie
// into the request context. Missing, expired or tampered cookies are ignored.
func TemplateMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(TemplateCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			orderID, err := parseTemplateToken(cookie.Value, secret)
			if err != nil {
				slog.Warn("ignoring template cookie", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), TemplateCtxKey, orderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TemplateIDFromContext(ctx context.Context) (string, bool) {
	orderID, ok := ctx.Value(TemplateCtxKey).(string)
	return orderID, ok
}
