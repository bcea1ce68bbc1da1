package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"saintchat/model"
)

var errStoreDown = errors.New("store unavailable")

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore is an in-memory stand-in for model.Store with per-operation failure switches.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	customers map[string]*model.Customer
	convs     map[string]*model.Conversation
	clock     time.Time

	failUser     bool
	failCustomer bool
	failGet      bool
	failAppend   bool
	failCount    bool
	failList     bool

	userCalls     int
	customerCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*model.User{},
		customers: map[string]*model.Customer{},
		convs:     map[string]*model.Conversation{},
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func convKey(uid, id string) string { return uid + "/" + id }

func (m *memStore) GetUser(_ context.Context, uid string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userCalls++
	if m.failUser {
		return nil, errStoreDown
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetCustomer(_ context.Context, uid string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerCalls++
	if m.failCustomer {
		return nil, errStoreDown
	}
	c, ok := m.customers[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetConversation(_ context.Context, uid, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errStoreDown
	}
	if id == "" {
		return &model.Conversation{UserId: uid, ID: newConversationID(), Messages: []model.Message{}}, nil
	}
	c, ok := m.convs[convKey(uid, id)]
	if !ok {
		return &model.Conversation{UserId: uid, ID: id, Messages: []model.Message{}}, nil
	}
	cp := *c
	cp.Messages = append([]model.Message{}, c.Messages...)
	return &cp, nil
}

func (m *memStore) AppendExchange(_ context.Context, uid, id string, userMsg, assistantMsg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errStoreDown
	}
	m.clock = m.clock.Add(time.Second)
	c, ok := m.convs[convKey(uid, id)]
	if !ok {
		c = &model.Conversation{UserId: uid, ID: id}
		m.convs[convKey(uid, id)] = c
	}
	c.Messages = append(c.Messages, userMsg, assistantMsg)
	c.LastUpdated = m.clock
	return nil
}

func (m *memStore) IncrementMessageCount(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount {
		return errStoreDown
	}
	u, ok := m.users[uid]
	if !ok {
		u = &model.User{UID: uid}
		m.users[uid] = u
	}
	u.MessageCount++
	now := m.clock
	u.LastActive = &now
	return nil
}

func (m *memStore) ListConversations(_ context.Context, uid string, limit int) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errStoreDown
	}
	out := []model.Conversation{}
	for _, c := range m.convs {
		if c.UserId == uid {
			cp := *c
			cp.Messages = append([]model.Message{}, c.Messages...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) messageCount(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[uid]; ok {
		return u.MessageCount
	}
	return 0
}

func (m *memStore) transcript(uid, id string) []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.convs[convKey(uid, id)]; ok {
		return append([]model.Message{}, c.Messages...)
	}
	return nil
}

// fakeGenerator echoes the prompt or fails when err is set.
type fakeGenerator struct {
	mu      sync.Mutex
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return "reply to: " + prompt, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
