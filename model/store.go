package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// Store persists users, customers and conversation transcripts.
// It is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) GetUser(ctx context.Context, uid string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &user, nil
}

func (s *Store) GetCustomer(ctx context.Context, uid string) (*Customer, error) {
	var customer Customer
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &customer, nil
}

// GetConversation returns the transcript for conversationID. An empty id allocates
// a new one; an unknown id yields an empty transcript anchored to that id.
func (s *Store) GetConversation(ctx context.Context, uid, conversationID string) (*Conversation, error) {
	if conversationID == "" {
		return &Conversation{UserId: uid, ID: uuid.NewString(), Messages: []Message{}}, nil
	}

	conv := Conversation{UserId: uid, ID: conversationID}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", uid, conversationID).
		First(&conv).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	msgs := []Message{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", uid, conversationID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	conv.Messages = msgs
	return &conv, nil
}

// AppendExchange stores the user and assistant messages after any existing ones and
// stamps the conversation's LastUpdated. Rows are only ever inserted, so concurrent
// appends to the same conversation cannot overwrite each other.
func (s *Store) AppendExchange(ctx context.Context, uid, conversationID string, userMsg, assistantMsg Message) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := Conversation{UserId: uid, ID: conversationID, LastUpdated: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_updated": now}),
		}).Create(&conv).Error; err != nil {
			return fmt.Errorf("failed to upsert conversation: %w", err)
		}

		rows := []Message{userMsg, assistantMsg}
		for i := range rows {
			rows[i].ID = 0
			rows[i].UserId = uid
			rows[i].ConversationId = conversationID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert messages: %w", err)
		}
		return nil
	})
}

// IncrementMessageCount bumps the user's lifetime message counter, creating the
// user record on first use.
func (s *Store) IncrementMessageCount(ctx context.Context, uid string) error {
	now := s.now()
	user := User{UID: uid, MessageCount: 1, LastActive: &now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"message_count": gorm.Expr("message_count + 1"),
			"last_active":   now,
			"updated_at":    now,
		}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}
	return nil
}

// ListConversations returns up to limit conversations, most recently updated first,
// each with its full transcript.
func (s *Store) ListConversations(ctx context.Context, uid string, limit int) ([]Conversation, error) {
	var convs []Conversation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("last_updated DESC").
		Order("id ASC").
		Limit(limit).
		Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(convs) == 0 {
		return []Conversation{}, nil
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	var msgs []Message
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id IN ?", uid, ids).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	byConv := make(map[string][]Message, len(convs))
	for _, m := range msgs {
		byConv[m.ConversationId] = append(byConv[m.ConversationId], m)
	}
	for i := range convs {
		convs[i].Messages = byConv[convs[i].ID]
		if convs[i].Messages == nil {
			convs[i].Messages = []Message{}
		}
	}
	return convs, nil
}

// CountActiveUsers counts users whose last message was at or after since.
func (s *Store) CountActiveUsers(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).Where("last_active >= ?", since).Count(&n).Error
	return n, err
}

// CountMessages counts user-authored messages created at or after since.
func (s *Store) CountMessages(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Message{}).
		Where("role = ? AND created_at >= ?", RoleUser, since).
		Count(&n).Error
	return n, err
}

// CountUsersAtLimit counts users without a premium flag whose counter reached limit.
// Mirror entitlements are not consulted, so the figure is an upper bound.
func (s *Store) CountUsersAtLimit(ctx context.Context, limit int) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("message_count >= ? AND is_premium = ? AND (subscription_tier IS NULL OR subscription_tier <> ?)", limit, false, TierPremium).
		Count(&n).Error
	return n, err
}
