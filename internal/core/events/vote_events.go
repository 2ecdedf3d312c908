package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeVoteCast         = "vote.cast"
	EventTypePresenceVerified = "presence.verified"
	EventTypePollStatusChange = "poll.status_changed"
)

type VoteCastEvent struct {
	BaseEvent
	PollID           int64  `json:"poll_id"`
	PollOptionID     int64  `json:"poll_option_id"`
	UserID           int64  `json:"user_id"`
	ProxyUserID      *int64 `json:"proxy_user_id,omitempty"`
	VerificationType string `json:"verification_type"`
}

func NewVoteCastEvent(pollID, optionID, userID int64, proxyUserID *int64, verificationType string) *VoteCastEvent {
	data := map[string]interface{}{
		"poll_id":           pollID,
		"poll_option_id":    optionID,
		"user_id":           userID,
		"verification_type": verificationType,
	}
	if proxyUserID != nil {
		data["proxy_user_id"] = *proxyUserID
	}
	return &VoteCastEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeVoteCast,
			Timestamp: time.Now(),
			Data:      data,
		},
		PollID:           pollID,
		PollOptionID:     optionID,
		UserID:           userID,
		ProxyUserID:      proxyUserID,
		VerificationType: verificationType,
	}
}

type PresenceVerifiedEvent struct {
	BaseEvent
	PollID           int64  `json:"poll_id"`
	UserID           int64  `json:"user_id"`
	VerificationType string `json:"verification_type"`
}

func NewPresenceVerifiedEvent(pollID, userID int64, verificationType string) *PresenceVerifiedEvent {
	return &PresenceVerifiedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePresenceVerified,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"poll_id":           pollID,
				"user_id":           userID,
				"verification_type": verificationType,
			},
		},
		PollID:           pollID,
		UserID:           userID,
		VerificationType: verificationType,
	}
}

type PollStatusChangedEvent struct {
	BaseEvent
	PollID    int64  `json:"poll_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy int64  `json:"changed_by"`
}

func NewPollStatusChangedEvent(pollID int64, oldStatus, newStatus string, changedBy int64) *PollStatusChangedEvent {
	return &PollStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePollStatusChange,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"poll_id":    pollID,
				"old_status": oldStatus,
				"new_status": newStatus,
				"changed_by": changedBy,
			},
		},
		PollID:    pollID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
	}
}
