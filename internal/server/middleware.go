package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/pressline/internal/observability/context"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
)

const (
	contextSessionKey = "operator_session"
	contextTokenKey   = "operator_token"
)

// OperatorRequired resolves the calling operator from a bearer token or
// basic credentials and stores the session on the request.
func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))

		var (
			session operatordomain.Session
			token   string
			err     error
		)
		switch {
		case strings.HasPrefix(header, "Bearer "):
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			session, err = s.operatorSvc.Authenticate(c.Request.Context(), token)
		default:
			login, password, ok := c.Request.BasicAuth()
			if !ok {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			var result *operatordomain.LoginResult
			result, err = s.operatorSvc.Login(c.Request.Context(), login, password)
			if err == nil && result != nil {
				session = result.Session
				token = result.Token
			}
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !session.Valid() {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextSessionKey, session)
		c.Set(contextTokenKey, token)
		ctx := obscontext.WithActor(c.Request.Context(), "operator", strconv.FormatInt(session.OperatorID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (operatordomain.Session, bool) {
	v, ok := c.Get(contextSessionKey)
	if !ok {
		return operatordomain.Session{}, false
	}
	session, ok := v.(operatordomain.Session)
	return session, ok && session.Valid()
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
