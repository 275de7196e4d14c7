package models

// UserEvent is one behavioral log entry in the user_events collection.
// Timestamp is kept as an RFC3339 string with a Z suffix; queries parse it
// with $dateFromString and compare it lexically.
type UserEvent struct {
	ID        string         `bson:"_id" json:"_id"`
	UserId    int            `bson:"user_id" json:"user_id"`
	SessionId string         `bson:"session_id" json:"session_id"`
	Timestamp string         `bson:"timestamp" json:"timestamp"`
	EventType EventType      `bson:"event_type" json:"event_type"`
	Details   map[string]any `bson:"details" json:"details"`
}

const EventTimestampLayout = "2006-01-02T15:04:05Z"
