package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"saintchat/model"
	"saintchat/platform"
)

type TierResolver interface {
	Resolve(ctx context.Context, uid string) Tier
}

type QuotaChecker interface {
	WithinLimit(ctx context.Context, uid string) bool
	MessageCount(ctx context.Context, uid string) (int, error)
	Limit() int
}

type ConversationStore interface {
	GetConversation(ctx context.Context, uid, conversationID string) (*model.Conversation, error)
	AppendExchange(ctx context.Context, uid, conversationID string, userMsg, assistantMsg model.Message) error
	IncrementMessageCount(ctx context.Context, uid string) error
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Reply is what the caller sees on success.
type Reply struct {
	Role           string `json:"role"`
	Message        string `json:"message"`
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// Durability records the best-effort store operations of one cycle. None of these
// errors change the caller-visible outcome.
type Durability struct {
	TranscriptLoadErr error
	TranscriptErr     error
	CounterErr        error
}

func (d Durability) Degraded() bool {
	return d.TranscriptLoadErr != nil || d.TranscriptErr != nil || d.CounterErr != nil
}

type ChatResult struct {
	Reply      Reply
	Tier       Tier
	Durability Durability
}

type UserStatus struct {
	Tier         string `json:"tier"`
	MessageCount int    `json:"messageCount"`
	MessageLimit int    `json:"messageLimit"`
	Remaining    int    `json:"remaining"`
}

type ChatService struct {
	entitlements TierResolver
	quota        QuotaChecker
	store        ConversationStore
	generator    Generator
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewChatService(entitlements TierResolver, quota QuotaChecker, store ConversationStore, generator Generator, log logrus.FieldLogger) *ChatService {
	return &ChatService{
		entitlements: entitlements,
		quota:        quota,
		store:        store,
		generator:    generator,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ProcessMessage runs one chat cycle for uid. The returned error is one of the
// caller-visible kinds; persistence failures only show up in ChatResult.Durability.
//
// The quota check and the counter increment are not atomic, so concurrent requests
// from one free user can each pass the check and overshoot the ceiling slightly.
func (s *ChatService) ProcessMessage(ctx context.Context, uid string, req ChatRequest) (*ChatResult, error) {
	reqID := RequestID(ctx)
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	// Whitespace-only messages count as empty.
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrValidation
	}

	// 客户端断开后仍然完成生成与写入
	ctx = context.WithoutCancel(ctx)

	tier := s.entitlements.Resolve(ctx, uid)
	s.log.Infof("[%s] user %s subscription status: %s", reqID, uid, tier)
	if tier == NotEntitled && !s.quota.WithinLimit(ctx, uid) {
		s.log.Infof("[%s] free tier user %s has exceeded message limit", reqID, uid)
		return nil, ErrQuotaExceeded
	}

	result := &ChatResult{Tier: tier}
	conv, err := s.store.GetConversation(ctx, uid, req.ConversationID)
	if err != nil {
		result.Durability.TranscriptLoadErr = fmt.Errorf("%w: %s", ErrStorageDegraded, err)
		s.log.Warnf("[%s] error retrieving conversation %q, continuing with empty transcript: %s", reqID, req.ConversationID, err)
		platform.RecordStorageDegraded("conversation_load")
		conv = s.emptyConversation(uid, req.ConversationID)
	}
	s.log.Infof("[%s] processing message for user %s: length=%d conversation=%s history=%d",
		reqID, uid, len(req.Message), conv.ID, len(conv.Messages))

	userMsg := model.NewMessage(model.RoleUser, req.Message, s.now())

	// Only the latest message is sent; stored history is not part of the prompt.
	text, err := s.generator.Generate(ctx, req.Message)
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %s", ErrUpstream, err)
		}
		s.log.Errorf("[%s] generation failed for user %s: %s", reqID, uid, err)
		return nil, err
	}

	assistantMsg := model.NewMessage(model.RoleAssistant, text, s.now())

	if err := s.store.AppendExchange(ctx, uid, conv.ID, userMsg, assistantMsg); err != nil {
		result.Durability.TranscriptErr = fmt.Errorf("%w: %s", ErrStorageDegraded, err)
		s.log.Errorf("[%s] error updating conversation %s: %s", reqID, conv.ID, err)
		platform.RecordStorageDegraded("conversation_append")
	}
	if err := s.store.IncrementMessageCount(ctx, uid); err != nil {
		result.Durability.CounterErr = fmt.Errorf("%w: %s", ErrStorageDegraded, err)
		s.log.Errorf("[%s] error updating message count for user %s: %s", reqID, uid, err)
		platform.RecordStorageDegraded("message_count")
	}

	result.Reply = Reply{
		Role:           model.RoleAssistant,
		Message:        text,
		Response:       text,
		ConversationID: conv.ID,
	}
	return result, nil
}

func (s *ChatService) emptyConversation(uid, conversationID string) *model.Conversation {
	if conversationID == "" {
		// The store could not allocate one; fall back to a fresh transcript id here.
		conversationID = newConversationID()
	}
	return &model.Conversation{UserId: uid, ID: conversationID, Messages: []model.Message{}}
}

func newConversationID() string {
	return uuid.NewString()
}

// Status reports the caller's tier and free-tier usage.
func (s *ChatService) Status(ctx context.Context, uid string) (*UserStatus, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	tier := s.entitlements.Resolve(ctx, uid)
	count, err := s.quota.MessageCount(ctx, uid)
	if err != nil {
		s.log.Warnf("[%s] message count lookup failed for user %s: %s", RequestID(ctx), uid, err)
		platform.RecordStorageDegraded("status_lookup")
		count = 0
	}

	status := &UserStatus{
		Tier:         tier.String(),
		MessageCount: count,
		MessageLimit: s.quota.Limit(),
	}
	if tier == NotEntitled {
		status.Remaining = max(s.quota.Limit()-count, 0)
	} else {
		status.Remaining = -1
	}
	return status, nil
}
