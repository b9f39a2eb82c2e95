package event

import "time"

type (
	Queueable interface {
		Type() string
		Expired() bool
	}

	Base struct {
		expireAt  time.Time
		eventType string
	}
)

// CreateBase returns a base that never expires when expiresAt is zero.
func CreateBase(eventType string, expiresAt time.Time) Base {
	return Base{
		expireAt:  expiresAt,
		eventType: eventType,
	}
}

func (b Base) Expired() bool {
	return !b.expireAt.IsZero() && time.Until(b.expireAt) < 0
}

func (b Base) Type() string {
	return b.eventType
}
