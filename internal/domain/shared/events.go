// Package shared contains common domain types, events, and helpers
// that are used across all domain packages.
package shared

import "time"

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven side effects of the
// engine (leaderboard updates, audit logging, downstream notifications).
const (
	// Rule engine events
	EventRuleTriggered EventType = "engine.rule_triggered"
	EventRuleSkipped   EventType = "engine.rule_skipped"

	// Reward events
	EventCoinsGranted       EventType = "reward.coins_granted"
	EventCardGenerated      EventType = "reward.card_generated"
	EventScholarshipAwarded EventType = "reward.scholarship_awarded"
	EventMysteryBoxCreated  EventType = "reward.mystery_box_created"
	EventMysteryBoxOpened   EventType = "reward.mystery_box_opened"

	// Streak events
	EventStreakUpdated EventType = "streak.updated"
	EventStreakBroken  EventType = "streak.broken"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Rule Engine Events
// ═══════════════════════════════════════════════════════════════════════════

// RuleTriggeredEvent is emitted when a rule fires for a user.
type RuleTriggeredEvent struct {
	BaseEvent
	RuleID      string `json:"rule_id"`
	RuleName    string `json:"rule_name"`
	UserID      string `json:"user_id"`
	CourseID    string `json:"course_id,omitempty"`
	ActionCount int    `json:"action_count"`
}

// Payload implements Event interface.
func (e RuleTriggeredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"rule_id":      e.RuleID,
		"rule_name":    e.RuleName,
		"user_id":      e.UserID,
		"course_id":    e.CourseID,
		"action_count": e.ActionCount,
	}
}

// NewRuleTriggeredEvent creates a new RuleTriggeredEvent.
func NewRuleTriggeredEvent(ruleID, ruleName, userID, courseID string, actionCount int) RuleTriggeredEvent {
	return RuleTriggeredEvent{
		BaseEvent:   NewBaseEvent(EventRuleTriggered, ruleID),
		RuleID:      ruleID,
		RuleName:    ruleName,
		UserID:      userID,
		CourseID:    courseID,
		ActionCount: actionCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// CoinsGrantedEvent is emitted when coins land in a user's wallet.
type CoinsGrantedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Amount     int    `json:"amount"`
	NewBalance int    `json:"new_balance"`
	Reason     string `json:"reason"`
	RuleID     string `json:"rule_id,omitempty"`
}

// Payload implements Event interface.
func (e CoinsGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"amount":      e.Amount,
		"new_balance": e.NewBalance,
		"reason":      e.Reason,
		"rule_id":     e.RuleID,
	}
}

// NewCoinsGrantedEvent creates a new CoinsGrantedEvent.
func NewCoinsGrantedEvent(userID string, amount, newBalance int, reason, ruleID string) CoinsGrantedEvent {
	return CoinsGrantedEvent{
		BaseEvent:  NewBaseEvent(EventCoinsGranted, userID),
		UserID:     userID,
		Amount:     amount,
		NewBalance: newBalance,
		Reason:     reason,
		RuleID:     ruleID,
	}
}

// CardGeneratedEvent is emitted when a motivation card is created.
type CardGeneratedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	PublicID string `json:"public_id"`
	CardType string `json:"card_type"`
	RuleID   string `json:"rule_id,omitempty"`
}

// Payload implements Event interface.
func (e CardGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"public_id": e.PublicID,
		"card_type": e.CardType,
		"rule_id":   e.RuleID,
	}
}

// NewCardGeneratedEvent creates a new CardGeneratedEvent.
func NewCardGeneratedEvent(userID, publicID, cardType, ruleID string) CardGeneratedEvent {
	return CardGeneratedEvent{
		BaseEvent: NewBaseEvent(EventCardGenerated, userID),
		UserID:    userID,
		PublicID:  publicID,
		CardType:  cardType,
		RuleID:    ruleID,
	}
}

// MysteryBoxOpenedEvent is emitted when a user opens a mystery box.
type MysteryBoxOpenedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	BoxID       string `json:"box_id"`
	RewardType  string `json:"reward_type"`
	RewardValue string `json:"reward_value"`
}

// Payload implements Event interface.
func (e MysteryBoxOpenedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"box_id":       e.BoxID,
		"reward_type":  e.RewardType,
		"reward_value": e.RewardValue,
	}
}

// NewMysteryBoxOpenedEvent creates a new MysteryBoxOpenedEvent.
func NewMysteryBoxOpenedEvent(userID, boxID, rewardType, rewardValue string) MysteryBoxOpenedEvent {
	return MysteryBoxOpenedEvent{
		BaseEvent:   NewBaseEvent(EventMysteryBoxOpened, userID),
		UserID:      userID,
		BoxID:       boxID,
		RewardType:  rewardType,
		RewardValue: rewardValue,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when a user's activity streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, currentStreak, longestStreak int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID),
		UserID:        userID,
		CurrentStreak: currentStreak,
		LongestStreak: longestStreak,
	}
}

// StreakBrokenEvent is emitted when a previously active streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Infrastructure
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
