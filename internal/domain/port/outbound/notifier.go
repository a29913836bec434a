package outbound

import "context"

// AlertNotification is the normalised payload sent to the alerting sink.
type AlertNotification struct {
	RecordID    string
	Title       string
	Description string
	Severity    string
	Category    string
	Metadata    map[string]any
}

// Notifier pages humans about HIGH and CRITICAL security events.
type Notifier interface {
	NotifySecurityAlert(ctx context.Context, notification AlertNotification) error
}
