package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"taskly-server/configs"
)

const userIDKey = "user_id"
const emailIDKey = "user_email"

// JWTMiddleware extracts the Bearer token from the Authorization
// header, verifies it against the configured HMAC secret, and stores
// the sub claim (user ID) and email claim in the echo context.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header format"})
		}
		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(configs.Configs.Secrets.JwtSecret), nil
		})
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
			sub, ok := claims["sub"].(string)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "sub claim not found in token"})
			}
			email, ok := claims["email"].(string)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "email claim not found in token"})
			}
			c.Set(userIDKey, sub)
			c.Set(emailIDKey, email)
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}
}

// GetUserIDFromContext extracts the user_id stored by the middleware.
func GetUserIDFromContext(c echo.Context) (string, error) {
	uid := c.Get(userIDKey)
	if uid == nil {
		return "", errors.New("user id not found in context")
	}
	userID, ok := uid.(string)
	if !ok {
		return "", errors.New("user id has invalid type")
	}
	return userID, nil
}

// GetEmailFromContext extracts the user_email stored by the middleware.
func GetEmailFromContext(c echo.Context) (string, error) {
	email := c.Get(emailIDKey)
	if email == nil {
		return "", errors.New("user email not found in context")
	}
	emailStr, ok := email.(string)
	if !ok {
		return "", errors.New("user email has invalid type")
	}
	return emailStr, nil
}
