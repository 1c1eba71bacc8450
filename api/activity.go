package api

import (
	"log/slog"
	"net/http"
	"time"
)

// ActivityEvent names a session state change made through the API.
type ActivityEvent string

const (
	ActivityOTPSessionSaved     ActivityEvent = "otp_session_saved"
	ActivityLoginSessionSaved   ActivityEvent = "login_session_saved"
	ActivityUserDataSaved       ActivityEvent = "user_data_saved"
	ActivitySaveFailed          ActivityEvent = "session_save_failed"
	ActivityProfileUpdated      ActivityEvent = "profile_updated"
	ActivityProfileRefreshed    ActivityEvent = "profile_refreshed"
	ActivityProfileRefreshError ActivityEvent = "profile_refresh_failed"
	ActivityLogout              ActivityEvent = "logout"
	ActivityLogoutIncomplete    ActivityEvent = "logout_incomplete"
)

// activityLogger writes one structured line per event and feeds the
// failure-spike collector and the optional webhook.
type activityLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *activityWebhook
}

func newActivityLogger(logger *slog.Logger) *activityLogger {
	return &activityLogger{
		logger: logger.With("component", "activity"),
	}
}

func (al *activityLogger) log(event ActivityEvent, r *http.Request, attrs ...slog.Attr) {
	if al == nil {
		return
	}
	now := time.Now().UTC()
	requestID := requestIDFromContext(r.Context())
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("request_id", requestID),
		slog.String("timestamp", now.Format(time.RFC3339)),
	}
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "activity", append(base, attrs...)...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
	if al.webhook != nil {
		extra := make(map[string]string, len(attrs))
		for _, a := range attrs {
			extra[a.Key] = a.Value.String()
		}
		al.webhook.enqueue(webhookEvent{
			Event:     string(event),
			RequestID: requestID,
			Timestamp: now.Format(time.RFC3339),
			Attrs:     extra,
		})
	}
}

// logFailure records a failed operation with its reason.
func (al *activityLogger) logFailure(event ActivityEvent, r *http.Request, err error, extra ...slog.Attr) {
	attrs := append([]slog.Attr{slog.String("reason", err.Error())}, extra...)
	al.log(event, r, attrs...)
}
