package models

import "testing"

func TestMessageTypeValid(t *testing.T) {
	for _, mt := range []MessageType{MessageTypeText, MessageTypeImage, MessageTypeSystem} {
		if !mt.Valid() {
			t.Fatalf("expected %q to be a valid message type", mt)
		}
	}
	for _, mt := range []MessageType{"", "video", "TEXT"} {
		if mt.Valid() {
			t.Fatalf("expected %q to be rejected", mt)
		}
	}
}

func TestConversationTypeValid(t *testing.T) {
	if !ConversationTypePrivate.Valid() || !ConversationTypeGroup.Valid() {
		t.Fatal("expected known conversation types to be valid")
	}
	if ConversationType("channel").Valid() {
		t.Fatal("expected unknown conversation type to be rejected")
	}
}

func TestMessageStatusAdvancesForwardOnly(t *testing.T) {
	cases := []struct {
		from, to MessageStatus
		want     bool
	}{
		{MessageStatusSent, MessageStatusDelivered, true},
		{MessageStatusSent, MessageStatusRead, true}, // read sweep may skip delivered
		{MessageStatusDelivered, MessageStatusRead, true},
		{MessageStatusDelivered, MessageStatusSent, false},
		{MessageStatusRead, MessageStatusDelivered, false},
		{MessageStatusRead, MessageStatusSent, false},
		{MessageStatusSent, MessageStatusSent, false},
		{MessageStatusSent, "archived", false},
		{"", MessageStatusRead, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("CanAdvanceTo(%q -> %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestConversationHasParticipantAndUnreadFor(t *testing.T) {
	conv := &Conversation{
		Participants: []string{"u1", "u2"},
		UnreadCounts: map[string]int{"u2": 3},
	}

	if !conv.HasParticipant("u1") {
		t.Fatal("expected u1 to be a participant")
	}
	if conv.HasParticipant("u3") {
		t.Fatal("expected u3 not to be a participant")
	}
	if got := conv.UnreadFor("u2"); got != 3 {
		t.Fatalf("expected 3 unread for u2, got %d", got)
	}
	if got := conv.UnreadFor("u1"); got != 0 {
		t.Fatalf("expected 0 unread for u1, got %d", got)
	}

	var empty Conversation
	if got := empty.UnreadFor("anyone"); got != 0 {
		t.Fatalf("expected 0 unread on empty conversation, got %d", got)
	}
}
