// internal/data/alert.go
package data

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

type AlertType string

const (
	AlertTemperature AlertType = "Temperature"
	AlertMotion      AlertType = "Motion"
	AlertHealth      AlertType = "Health"
	AlertDevice      AlertType = "Device"
	AlertSystem      AlertType = "System"
	AlertBattery     AlertType = "Battery"
	AlertSignal      AlertType = "Signal"
	AlertMaintenance AlertType = "Maintenance"
	AlertSecurity    AlertType = "Security"
	AlertOther       AlertType = "Other"
)

// Severity of a persisted alert. Same scale as RiskLevel.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

type AlertStatus string

const (
	StatusActive       AlertStatus = "Active"
	StatusAcknowledged AlertStatus = "Acknowledged"
	StatusResolved     AlertStatus = "Resolved"
	StatusEscalated    AlertStatus = "Escalated"
	StatusDismissed    AlertStatus = "Dismissed"
)

const (
	DefaultPriority = 5
	lowSeverityTTL  = 30 * 24 * time.Hour
)

var (
	ErrInvalidTransition = errors.New("invalid alert status transition")
	ErrActorRequired     = errors.New("actor is required")
	ErrTargetRequired    = errors.New("escalation target is required")
	ErrReasonRequired    = errors.New("escalation reason is required")
)

var validAlertTypes = map[AlertType]bool{
	AlertTemperature: true, AlertMotion: true, AlertHealth: true, AlertDevice: true, AlertSystem: true,
	AlertBattery: true, AlertSignal: true, AlertMaintenance: true, AlertSecurity: true, AlertOther: true,
}

var validSeverities = map[Severity]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
}

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool { return validAlertTypes[t] }

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool { return validSeverities[s] }

// AlertSource links an alert to a cow, device or farm by value only.
type AlertSource struct {
	CowID    string `json:"cowId,omitempty" bson:"cowId,omitempty"`
	DeviceID string `json:"deviceId,omitempty" bson:"deviceId,omitempty"`
	FarmID   string `json:"farmId,omitempty" bson:"farmId,omitempty"`
}

// AlertData is the numeric snapshot taken when the alert was raised.
type AlertData struct {
	Temperature    *float64               `json:"temperature,omitempty" bson:"temperature,omitempty"`
	MotionChange   *float64               `json:"motionChange,omitempty" bson:"motionChange,omitempty"`
	BatteryLevel   *float64               `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
	SignalStrength *float64               `json:"signalStrength,omitempty" bson:"signalStrength,omitempty"`
	HealthScore    *float64               `json:"healthScore,omitempty" bson:"healthScore,omitempty"`
	CustomData     map[string]interface{} `json:"customData,omitempty" bson:"customData,omitempty"`
}

type AlertAction struct {
	ActionType  string    `json:"actionType" bson:"actionType"`
	PerformedBy string    `json:"performedBy" bson:"performedBy"`
	PerformedAt time.Time `json:"performedAt" bson:"performedAt"`
	Result      string    `json:"result,omitempty" bson:"result,omitempty"`
	Success     bool      `json:"success" bson:"success"`
}

type Acknowledgment struct {
	IsAcknowledged bool       `json:"isAcknowledged" bson:"isAcknowledged"`
	AcknowledgedBy string     `json:"acknowledgedBy,omitempty" bson:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	Note           string     `json:"acknowledgmentNote,omitempty" bson:"acknowledgmentNote,omitempty"`
}

type Resolution struct {
	IsResolved bool       `json:"isResolved" bson:"isResolved"`
	ResolvedBy string     `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	Note       string     `json:"resolutionNote,omitempty" bson:"resolutionNote,omitempty"`
	// Minutes between creation and resolution. Unset when either timestamp is missing.
	ResolutionTime *int `json:"resolutionTime,omitempty" bson:"resolutionTime,omitempty"`
}

type Escalation struct {
	IsEscalated bool       `json:"isEscalated" bson:"isEscalated"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty" bson:"escalatedAt,omitempty"`
	EscalatedTo string     `json:"escalatedTo,omitempty" bson:"escalatedTo,omitempty"`
	Reason      string     `json:"escalationReason,omitempty" bson:"escalationReason,omitempty"`
}

// Alert is the persisted, actionable record raised by classification or anomaly output.
type Alert struct {
	ID             string         `json:"id" bson:"_id"`
	AlertID        string         `json:"alertId" bson:"alertId"`
	Type           AlertType      `json:"type" bson:"type"`
	Severity       Severity       `json:"severity" bson:"severity"`
	Status         AlertStatus    `json:"status" bson:"status"`
	Source         AlertSource    `json:"source" bson:"source"`
	Title          string         `json:"title" bson:"title"`
	Description    string         `json:"description" bson:"description"`
	Message        string         `json:"message" bson:"message"`
	Data           AlertData      `json:"data" bson:"data"`
	Actions        []AlertAction  `json:"actions" bson:"actions"`
	Acknowledgment Acknowledgment `json:"acknowledgment" bson:"acknowledgment"`
	Resolution     Resolution     `json:"resolution" bson:"resolution"`
	Escalation     Escalation     `json:"escalation" bson:"escalation"`
	Tags           []string       `json:"tags,omitempty" bson:"tags,omitempty"`
	Priority       int            `json:"priority" bson:"priority"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
	ExpiresAt      *time.Time     `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// Disease returns the disease label stored in the custom data, if any.
func (a *Alert) Disease() Disease {
	if a.Data.CustomData == nil {
		return ""
	}
	switch v := a.Data.CustomData["disease"].(type) {
	case string:
		return Disease(v)
	case Disease:
		return v
	}
	return ""
}

// Prepare fills the defaults a new alert needs before insertion.
func (a *Alert) Prepare(now time.Time) {
	if a.AlertID == "" {
		a.AlertID = NewAlertID(now)
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.Priority == 0 {
		a.Priority = DefaultPriority
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Severity == SeverityLow && a.ExpiresAt == nil {
		expires := a.CreatedAt.Add(lowSeverityTTL)
		a.ExpiresAt = &expires
	}
	if a.Actions == nil {
		a.Actions = []AlertAction{}
	}
}

// NewAlertID builds a human readable id of the form ALERT-<unix ms>-<random>.
func NewAlertID(now time.Time) string {
	suffix := strconv.FormatInt(rand.Int63n(36*36*36*36*36*36), 36)
	for len(suffix) < 6 {
		suffix = "0" + suffix
	}
	return strings.ToUpper(fmt.Sprintf("ALERT-%d-%s", now.UnixMilli(), suffix))
}

// Acknowledge moves an Active alert to Acknowledged.
func (a *Alert) Acknowledge(by, note string, now time.Time) error {
	if strings.TrimSpace(by) == "" {
		return ErrActorRequired
	}
	if a.Status != StatusActive {
		return fmt.Errorf("%w: cannot acknowledge %s alert", ErrInvalidTransition, a.Status)
	}
	a.Acknowledgment = Acknowledgment{
		IsAcknowledged: true,
		AcknowledgedBy: by,
		AcknowledgedAt: &now,
		Note:           note,
	}
	a.Status = StatusAcknowledged
	a.UpdatedAt = now
	return nil
}

// Resolve closes an open alert and records how long it stayed open.
func (a *Alert) Resolve(by, note string, now time.Time) error {
	if strings.TrimSpace(by) == "" {
		return ErrActorRequired
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: cannot resolve %s alert", ErrInvalidTransition, a.Status)
	}
	a.Resolution = Resolution{
		IsResolved: true,
		ResolvedBy: by,
		ResolvedAt: &now,
		Note:       note,
	}
	a.Resolution.ResolutionTime = resolutionMinutes(a.CreatedAt, now)
	a.Status = StatusResolved
	a.UpdatedAt = now
	return nil
}

// Escalate hands an Active or Acknowledged alert over to someone else.
func (a *Alert) Escalate(to, reason string, now time.Time) error {
	if strings.TrimSpace(to) == "" {
		return ErrTargetRequired
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if a.Status != StatusActive && a.Status != StatusAcknowledged {
		return fmt.Errorf("%w: cannot escalate %s alert", ErrInvalidTransition, a.Status)
	}
	a.Escalation = Escalation{
		IsEscalated: true,
		EscalatedAt: &now,
		EscalatedTo: to,
		Reason:      reason,
	}
	a.Status = StatusEscalated
	a.UpdatedAt = now
	return nil
}

// Dismiss closes an open alert without resolving it.
func (a *Alert) Dismiss(by, note string, now time.Time) error {
	if strings.TrimSpace(by) == "" {
		return ErrActorRequired
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: cannot dismiss %s alert", ErrInvalidTransition, a.Status)
	}
	a.Status = StatusDismissed
	a.AddAction("Manual Intervention", by, "dismissed: "+note, true, now)
	return nil
}

// AddAction logs an action without changing the status.
func (a *Alert) AddAction(actionType, by, result string, success bool, now time.Time) {
	if by == "" {
		by = "System"
	}
	a.Actions = append(a.Actions, AlertAction{
		ActionType:  actionType,
		PerformedBy: by,
		PerformedAt: now,
		Result:      result,
		Success:     success,
	})
	a.UpdatedAt = now
}

// Terminal reports whether no further status change is allowed.
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

func resolutionMinutes(createdAt, resolvedAt time.Time) *int {
	if createdAt.IsZero() || resolvedAt.IsZero() || resolvedAt.Before(createdAt) {
		return nil
	}
	minutes := int(math.Round(resolvedAt.Sub(createdAt).Minutes()))
	return &minutes
}
