package service

import (
	"context"
	"errors"
	"testing"
)

type sentMessage struct {
	chatID, text string
	markdown     bool
}

type stubSender struct {
	sent []sentMessage
	err  error
}

func (s *stubSender) SendMessage(ctx context.Context, chatID, text string, markdown bool) error {
	s.sent = append(s.sent, sentMessage{chatID, text, markdown})
	return s.err
}

func TestNotificationMessages(t *testing.T) {
	sender := &stubSender{}
	n := NewNotificationService("42")
	n.Sender = sender
	ctx := context.Background()

	_ = n.NotifyCreated(ctx, "Write report", "")
	_ = n.NotifyCompleted(ctx, "Write report", "Q3 numbers")
	_ = n.NotifyDigest(ctx, "Two tasks left")
	_ = n.SendText(ctx, "ping")

	want := []sentMessage{
		{"42", "📝 *New Task Added!*\n\n*Title:* Write report\n*Description:* ", true},
		{"42", "✅ *Task Completed!*\n\n*Title:* Write report\n*Description:* Q3 numbers", true},
		{"42", "🧠 *Weekly Smart Summary:*\n\nTwo tasks left", true},
		{"42", "ping", false},
	}
	if len(sender.sent) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(sender.sent))
	}
	for i := range want {
		if sender.sent[i] != want[i] {
			t.Fatalf("message %d: got %+v want %+v", i, sender.sent[i], want[i])
		}
	}
}

func TestNotificationFailureIsTyped(t *testing.T) {
	n := NewNotificationService("42")
	n.Sender = &stubSender{err: errors.New("chat not found")}
	err := n.NotifyCreated(context.Background(), "a", "b")
	var ne *NotificationError
	if !errors.As(err, &ne) || ne.Kind != string(EventTaskCreated) {
		t.Fatalf("expected NotificationError, got %v", err)
	}

	n = NewNotificationService("42")
	if err := n.NotifyDigest(context.Background(), "x"); !errors.As(err, &ne) {
		t.Fatalf("missing sender: expected NotificationError, got %v", err)
	}
}
