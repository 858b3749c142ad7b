// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package chattest provides in-memory fakes for exercising the chat service
// without a database.
package chattest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/pubsub"
)

// Memory is an in-memory chat.Store backend enforcing the same uniqueness
// rules as the database schema.
type Memory struct {
	mu          sync.Mutex
	users       []*chat.User
	rooms       []*chat.Room
	messages    []*chat.Message
	memberships []*chat.Membership
	failures    map[string]error
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{failures: make(map[string]error)}
}

// Store returns a chat.Store backed by m.
func (m *Memory) Store() chat.Store {
	return chat.Store{
		Users:       (*users)(m),
		Rooms:       (*rooms)(m),
		Messages:    (*messages)(m),
		Memberships: (*memberships)(m),
		Tx:          m,
	}
}

// FailOn makes the named operation (for example "rooms.Create") return err.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

func (m *Memory) fail(op string) error {
	if err, ok := m.failures[op]; ok {
		return oops.Code("MEMORY_FAULT").With("operation", op).Wrap(err)
	}
	return nil
}

// Users returns a snapshot of stored users.
func (m *Memory) Users() []*chat.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.users)
}

// Rooms returns a snapshot of stored rooms.
func (m *Memory) Rooms() []*chat.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rooms)
}

// Messages returns a snapshot of stored messages.
func (m *Memory) Messages() []*chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// Memberships returns a snapshot of stored memberships.
func (m *Memory) Memberships() []*chat.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.memberships)
}

// InTransaction restores the previous state if fn fails.
func (m *Memory) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	u, r, msg, mb := slices.Clone(m.users), slices.Clone(m.rooms), slices.Clone(m.messages), slices.Clone(m.memberships)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.users, m.rooms, m.messages, m.memberships = u, r, msg, mb
		m.mu.Unlock()
		return err
	}
	return nil
}

func notFound(kind string) error {
	return oops.Code(strings.ToUpper(kind)+"_NOT_FOUND").Wrap(chat.ErrNotFound)
}

func duplicate(kind string) error {
	return oops.Code(strings.ToUpper(kind)+"_DUPLICATE").Wrap(chat.ErrDuplicate)
}

type users Memory

func (s *users) Create(_ context.Context, u *chat.User) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.Create"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return duplicate("user")
		}
	}
	c := *u
	m.users = append(m.users, &c)
	return nil
}

func (s *users) GetByID(_ context.Context, id ulid.ULID) (*chat.User, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.GetByID"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, notFound("user")
}

func (s *users) GetByUsername(_ context.Context, username string) (*chat.User, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.GetByUsername"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, notFound("user")
}

func (s *users) List(_ context.Context) ([]*chat.User, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.List"); err != nil {
		return nil, err
	}
	out := make([]*chat.User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (s *users) ListByRoom(_ context.Context, roomID ulid.ULID) ([]*chat.User, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.ListByRoom"); err != nil {
		return nil, err
	}
	out := []*chat.User{}
	for _, mb := range m.memberships {
		if mb.RoomID != roomID {
			continue
		}
		for _, u := range m.users {
			if u.ID == mb.UserID {
				c := *u
				out = append(out, &c)
			}
		}
	}
	return out, nil
}

func (s *users) UpdatePassword(_ context.Context, id ulid.ULID, hash string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("users.UpdatePassword"); err != nil {
		return err
	}
	for _, u := range m.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return notFound("user")
}

type rooms Memory

func (s *rooms) Create(_ context.Context, r *chat.Room) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("rooms.Create"); err != nil {
		return err
	}
	for _, existing := range m.rooms {
		if existing.RoomID == r.RoomID {
			return duplicate("room")
		}
	}
	c := *r
	m.rooms = append(m.rooms, &c)
	return nil
}

func (s *rooms) GetByID(_ context.Context, id ulid.ULID) (*chat.Room, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("rooms.GetByID"); err != nil {
		return nil, err
	}
	for _, r := range m.rooms {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, notFound("room")
}

func (s *rooms) GetByRoomID(_ context.Context, roomID string) (*chat.Room, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("rooms.GetByRoomID"); err != nil {
		return nil, err
	}
	for _, r := range m.rooms {
		if r.RoomID == roomID {
			c := *r
			return &c, nil
		}
	}
	return nil, notFound("room")
}

func (s *rooms) List(_ context.Context) ([]*chat.Room, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("rooms.List"); err != nil {
		return nil, err
	}
	out := make([]*chat.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (s *rooms) ListByUser(_ context.Context, userID ulid.ULID) ([]*chat.Room, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("rooms.ListByUser"); err != nil {
		return nil, err
	}
	out := []*chat.Room{}
	for _, mb := range m.memberships {
		if mb.UserID != userID {
			continue
		}
		for _, r := range m.rooms {
			if r.ID == mb.RoomID {
				c := *r
				out = append(out, &c)
			}
		}
	}
	return out, nil
}

type messages Memory

func (s *messages) Create(_ context.Context, msg *chat.Message) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("messages.Create"); err != nil {
		return err
	}
	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (s *messages) ListByRoom(_ context.Context, roomID ulid.ULID) ([]*chat.Message, error) {
	return s.filter("messages.ListByRoom", func(msg *chat.Message) bool { return msg.RoomID == roomID })
}

func (s *messages) ListByUser(_ context.Context, userID ulid.ULID) ([]*chat.Message, error) {
	return s.filter("messages.ListByUser", func(msg *chat.Message) bool { return msg.UserID == userID })
}

func (s *messages) filter(op string, keep func(*chat.Message) bool) ([]*chat.Message, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(op); err != nil {
		return nil, err
	}
	out := []*chat.Message{}
	for _, msg := range m.messages {
		if keep(msg) {
			c := *msg
			out = append(out, &c)
		}
	}
	return out, nil
}

type memberships Memory

func (s *memberships) Create(_ context.Context, mb *chat.Membership) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("memberships.Create"); err != nil {
		return err
	}
	for _, existing := range m.memberships {
		if existing.UserID == mb.UserID && existing.RoomID == mb.RoomID {
			return duplicate("membership")
		}
	}
	c := *mb
	m.memberships = append(m.memberships, &c)
	return nil
}

func (s *memberships) Get(_ context.Context, userID, roomID ulid.ULID) (*chat.Membership, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("memberships.Get"); err != nil {
		return nil, err
	}
	for _, mb := range m.memberships {
		if mb.UserID == userID && mb.RoomID == roomID {
			c := *mb
			return &c, nil
		}
	}
	return nil, notFound("membership")
}

func (s *memberships) Delete(_ context.Context, id ulid.ULID) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("memberships.Delete"); err != nil {
		return err
	}
	for i, mb := range m.memberships {
		if mb.ID == id {
			m.memberships = slices.Delete(m.memberships, i, i+1)
			return nil
		}
	}
	return notFound("membership")
}

// Recorder captures published events.
type Recorder struct {
	mu     sync.Mutex
	events []pubsub.Event
}

// Publish implements chat.EventPublisher.
func (r *Recorder) Publish(_ context.Context, ev pubsub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the events published so far.
func (r *Recorder) Events() []pubsub.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}
