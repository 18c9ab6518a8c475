// Package jwt emite y valida los tokens de acceso a la API de clientes.
//
// Los tokens se emiten con `seed -token <subject>` (ver cmd/seed) y los valida
// AuthMiddleware cuando JWT_SECRET está configurado. El subject identifica al
// operador o sistema que consume la API y queda en el log de cada petición.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret  = errors.New("jwt: secret vacío")
	ErrEmptySubject = errors.New("jwt: subject vacío")
)

// Generate firma con HS256 un token para subject, válido expMinutes minutos.
// issuer vacío omite el claim iss.
func Generate(secret, subject, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", ErrEmptySubject
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve el subject. Un token sin subject se rechaza.
func Parse(secret, tokenString string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("token inválido: %w", err)
	}
	if claims.Subject == "" {
		return "", ErrEmptySubject
	}
	return claims.Subject, nil
}
