package model

import "time"

// SubscriptionStatus is the billing state of a subscriber.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionOverdue   SubscriptionStatus = "OVERDUE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Role receives notifications.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
)

// Subscription tracks a subscriber's due date and overdue escalation.
type Subscription struct {
	ID                    string
	UserID                string
	Email                 string
	Status                SubscriptionStatus
	DueAt                 *time.Time
	OverdueStage          int
	LastOverdueNotifiedAt *time.Time
}

// Notification is an in-app message addressed to a role.
type Notification struct {
	ID        string
	Role      Role
	Type      string
	Title     string
	Body      string
	Metadata  map[string]any
	CreatedAt time.Time
}
