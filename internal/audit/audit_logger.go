package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	AccountID string    `json:"account_id"`
	Amount    string    `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// Logger is implemented by AuditLogger and by test doubles
type Logger interface {
	LogLedger(eventType, reference, accountID, amount string, details map[string]string)
	LogError(reference, accountID string, err error)
}

// AuditLogger writes ledger and booking events as JSON log lines
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogLedger(eventType, reference, accountID, amount string, details map[string]string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *AuditLogger) LogError(reference, accountID string, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
