package goToken

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/goToken/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one token lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers events on a channel for the caller to drain.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs each event through a zap logger.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink { return internalaudit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return internalaudit.NewJSONWriterSink(w) }

func NewZapSink(logger *zap.Logger) *ZapSink { return internalaudit.NewZapSink(logger) }

const (
	auditEventIssue            = "token_issue"
	auditEventRotate           = "token_rotate"
	auditEventRotateConflict   = "token_rotate_conflict"
	auditEventRevokePair       = "token_revoke_pair"
	auditEventRevokeAll        = "token_revoke_all"
	auditEventAuthenticateDeny = "authenticate_denied"
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	clientContext string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     e.now().UTC(),
		EventType:     eventType,
		Subject:       subject,
		ClientContext: clientContext,
		Success:       success,
		Metadata:      metadata,
	}
	if err != nil {
		event.Error = FailureOf(err).String()
	}

	e.audit.Emit(ctx, event)
}

// AuditDropped returns how many audit events were dropped for backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}
