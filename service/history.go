package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"saintchat/model"
	"saintchat/platform"
)

// HistoryPageSize caps the number of conversations returned by List.
const HistoryPageSize = 50

type HistoryStore interface {
	ListConversations(ctx context.Context, uid string, limit int) ([]model.Conversation, error)
}

type HistoryService struct {
	store HistoryStore
	log   logrus.FieldLogger
}

func NewHistoryService(store HistoryStore, log logrus.FieldLogger) *HistoryService {
	return &HistoryService{store: store, log: log}
}

// List returns the caller's conversations, newest first. Store failures yield an
// empty list rather than an error.
func (h *HistoryService) List(ctx context.Context, uid string) ([]model.Conversation, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	reqID := RequestID(ctx)
	convs, err := h.store.ListConversations(ctx, uid, HistoryPageSize)
	if err != nil {
		h.log.Errorf("[%s] error fetching chat history for user %s: %s", reqID, uid, err)
		platform.RecordStorageDegraded("history_list")
		return []model.Conversation{}, nil
	}
	h.log.Infof("[%s] chat history fetched for user %s: %d conversations", reqID, uid, len(convs))
	return convs, nil
}
