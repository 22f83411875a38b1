package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/innoguard/internal/session"
	"github.com/jwalitptl/innoguard/pkg/logger"
)

// AuditMiddleware writes one access record per request that touches patient
// data: who (session and role), what (route and action) and the outcome.
type AuditMiddleware struct {
	store  session.Store
	logger *logger.Logger
}

func NewAuditMiddleware(store session.Store, l *logger.Logger) *AuditMiddleware {
	return &AuditMiddleware{store: store, logger: l.With("component", "audit")}
}

func (m *AuditMiddleware) AuditLog(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action := "read"
		switch {
		case c.Request.Method != "GET":
			action = "navigate"
		case c.FullPath() == "/patients/download":
			action = "export"
		}

		role := ""
		if sess, err := m.store.Load(c.Request.Context(), SessionID(c)); err == nil {
			role = sess.Role.String()
		}

		m.logger.Zerolog().Info().
			Str("request_id", c.GetString(ContextRequestID)).
			Str("session_id", SessionID(c)).
			Str("role", role).
			Str("entity", entityType).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Str("page", c.Query("page")).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Msg("patient data access")
	}
}
