package domain

import (
	"testing"
	"time"
)

type stubCounter struct{}

func (stubCounter) CountText(text string) int { return len(text) }

func (stubCounter) CountMessages(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}

func TestNewMessageStampsAndCaches(t *testing.T) {
	before := time.Now()
	m := NewMessage(RoleUser, "hello", stubCounter{})

	if m.Role != RoleUser || m.Content != "hello" {
		t.Errorf("message = %+v", m)
	}
	if m.TokenCount != 5 {
		t.Errorf("TokenCount = %d, want 5", m.TokenCount)
	}
	if !m.HasTimestamp() {
		t.Error("new message lacks timestamp")
	}
	if m.Timestamp.Before(before) || m.Timestamp.After(time.Now()) {
		t.Errorf("Timestamp %v outside creation window", m.Timestamp)
	}
}

func TestHasTimestamp(t *testing.T) {
	if (Message{}).HasTimestamp() {
		t.Error("zero message reports a timestamp")
	}
	if !(Message{Timestamp: time.Now()}).HasTimestamp() {
		t.Error("stamped message reports no timestamp")
	}
}
