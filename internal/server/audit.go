package server

import (
	"time"

	"go.uber.org/zap"
)

type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Handler    string    `json:"handler"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	SessionID  string    `json:"session_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}

func (e AuditLogEntry) fields() []zap.Field {
	fields := []zap.Field{
		zap.Time("timestamp", e.Timestamp),
		zap.String("handler", e.Handler),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status_code", e.StatusCode),
	}
	optional := []struct{ key, value string }{
		{"session_id", e.SessionID},
		{"order_id", e.OrderID},
		{"old_status", e.OldStatus},
		{"new_status", e.NewStatus},
		{"request", e.Request},
		{"response", e.Response},
	}
	for _, o := range optional {
		if o.value != "" {
			fields = append(fields, zap.String(o.key, o.value))
		}
	}
	return fields
}
