package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/pkg/ctxutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "auth"), secret: []byte(secret)}
}

type accessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and attaches the caller's identity
// and role flags to the request context. Everything under /api sits behind it.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			abortError(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		rd, err := am.parseToken(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err.Error())
			abortError(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireModerator gates the taxonomy mutations. It assumes RequireAuth ran
// earlier in the chain.
func (am *AuthMiddleware) RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			abortError(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		if !rd.IsModerator && !rd.IsAdmin {
			abortError(c, apierr.Forbidden("moderator role required"))
			return
		}
		c.Next()
	}
}

// RequireTeacherOrAdmin gates catalog content mutations.
func (am *AuthMiddleware) RequireTeacherOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			abortError(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		if !rd.IsTeacher && !rd.IsAdmin {
			abortError(c, apierr.Forbidden("teacher or admin role required"))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parseToken(tokenString string) (*ctxutil.RequestData, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("invalid subject claim")
	}
	rd := &ctxutil.RequestData{UserID: userID}
	for _, role := range claims.Roles {
		switch strings.ToLower(role) {
		case "moderator":
			rd.IsModerator = true
		case "teacher":
			rd.IsTeacher = true
		case "admin":
			rd.IsAdmin = true
		}
	}
	return rd, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func abortError(c *gin.Context, err *apierr.Error) {
	c.Abort()
	response.RespondError(c, err)
}
