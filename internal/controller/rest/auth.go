package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Claims содержимое токена: sub - ID пользователя, role - его роль
type Claims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal авторизованный пользователь запроса
type Principal struct {
	UserID int64
	Role   model.UserRole
}

type principalKey struct{}

// Authenticator проверяет HS256 токены
type Authenticator struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthenticator(secret string, logger *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// IssueToken выпускает токен для пользователя
func (a *Authenticator) IssueToken(userID int64, role model.UserRole, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse разбирает и проверяет токен
func (a *Authenticator) Parse(raw string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, errors.New("token has no valid subject")
	}
	switch claims.Role {
	case model.UserRoleAdmin, model.UserRoleTeacher, model.UserRoleStudent:
	default:
		return nil, fmt.Errorf("token has unknown role %q", claims.Role)
	}

	return &Principal{UserID: userID, Role: claims.Role}, nil
}

// Middleware требует валидный Bearer токен
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Envelope{Message: err.Error(), Code: "UNAUTHORIZED"})
			return
		}

		principal, err := a.Parse(raw)
		if err != nil {
			a.logger.Debug("Rejected token",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, Envelope{Message: "invalid token", Code: "UNAUTHORIZED"})
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole пропускает только перечисленные роли
func RequireRole(roles ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil || !slices.Contains(roles, p.Role) {
				writeJSON(w, http.StatusForbidden, Envelope{Message: "forbidden", Code: "FORBIDDEN"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFrom пользователь из контекста запроса
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("no token provided")
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", errors.New("invalid token format")
	}
	return fields[1], nil
}
