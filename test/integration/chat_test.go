// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/graph"
)

const (
	createUserMutation = `mutation($u: String!, $p: String!) {
		createUser(username: $u, password: $p) { success message user { id username } }
	}`
	loginMutation = `mutation($u: String!, $p: String!) {
		login(username: $u, password: $p) { success message token user { id } }
	}`
	createRoomMutation = `mutation($n: String!, $r: String!) {
		createRoom(name: $n, roomId: $r) { success message room { id roomId userRooms { username } } }
	}`
	joinRoomMutation = `mutation($id: ID!) {
		joinRoom(roomId: $id) { success message room { userRooms { username } } }
	}`
	leaveRoomMutation = `mutation($id: ID!) {
		leaveRoom(roomId: $id) { success message }
	}`
	createMessageMutation = `mutation($c: String!, $id: ID!) {
		createMessage(content: $c, roomId: $id) { success message msg { id content user { username } room { roomId } } }
	}`
	messagesQuery = `query($id: ID!) {
		messages(roomId: $id) { success message messages { content } }
	}`
)

const password = "Passw0rd"

// register creates a user and returns a bearer token for it.
func register(username string) string {
	GinkgoHelper()
	created := gql("", createUserMutation, map[string]any{"u": username, "p": password})
	Expect(field(created, "createUser", "success")).To(BeTrue())

	login := gql("", loginMutation, map[string]any{"u": username, "p": password})
	Expect(field(login, "login", "success")).To(BeTrue())
	token, ok := field(login, "login", "token").(string)
	Expect(ok).To(BeTrue())
	return token
}

// newRoom creates a room owned by token and returns its primary key.
func newRoom(token, roomID string) string {
	GinkgoHelper()
	data := gql(token, createRoomMutation, map[string]any{"n": "Room " + roomID, "r": roomID})
	Expect(field(data, "createRoom", "success")).To(BeTrue())
	return field(data, "createRoom", "room", "id").(string)
}

var _ = Describe("Accounts", func() {
	It("registers a user once and rejects the duplicate", func() {
		first := gql("", createUserMutation, map[string]any{"u": "alice", "p": password})
		Expect(field(first, "createUser", "success")).To(BeTrue())
		Expect(field(first, "createUser", "message")).To(Equal(graph.MsgUserCreated))

		second := gql("", createUserMutation, map[string]any{"u": "alice", "p": password})
		Expect(field(second, "createUser", "success")).To(BeFalse())
		Expect(field(second, "createUser", "message")).To(Equal(chat.MsgUserExists))

		var count int
		Expect(env.pool.QueryRow(env.ctx, `SELECT count(*) FROM users`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("stores an argon2id hash, never the password", func() {
		register("bob")

		var hash string
		Expect(env.pool.QueryRow(env.ctx, `SELECT password_hash FROM users WHERE username = 'bob'`).Scan(&hash)).To(Succeed())
		Expect(hash).To(HavePrefix("$argon2id$"))
		Expect(hash).NotTo(ContainSubstring(password))
	})

	It("rejects invalid usernames without creating a row", func() {
		data := gql("", createUserMutation, map[string]any{"u": "a b", "p": password})
		Expect(field(data, "createUser", "success")).To(BeFalse())
		Expect(field(data, "createUser", "message")).NotTo(BeEmpty())

		var count int
		Expect(env.pool.QueryRow(env.ctx, `SELECT count(*) FROM users`).Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("distinguishes unknown users from wrong passwords", func() {
		register("carol")

		unknown := gql("", loginMutation, map[string]any{"u": "nobody", "p": password})
		Expect(field(unknown, "login", "message")).To(Equal(chat.MsgUserNotFound))

		wrong := gql("", loginMutation, map[string]any{"u": "carol", "p": "Wr0ngpass"})
		Expect(field(wrong, "login", "message")).To(Equal(chat.MsgInvalidPassword))
		Expect(field(wrong, "login", "token")).To(BeNil())
	})
})

var _ = Describe("Rooms and messages", func() {
	var alice, bob string

	BeforeEach(func() {
		alice = register("alice")
		bob = register("bob")
	})

	It("makes the creator a member and enforces unique room ids", func() {
		data := gql(alice, createRoomMutation, map[string]any{"n": "General", "r": "general"})
		Expect(field(data, "createRoom", "success")).To(BeTrue())
		Expect(field(data, "createRoom", "room", "userRooms")).To(ConsistOf(
			map[string]any{"username": "alice"},
		))

		dup := gql(bob, createRoomMutation, map[string]any{"n": "Other", "r": "general"})
		Expect(field(dup, "createRoom", "success")).To(BeFalse())
		Expect(field(dup, "createRoom", "message")).To(Equal(chat.MsgRoomExists))
	})

	It("joins and leaves exactly once", func() {
		id := newRoom(alice, "general")

		joined := gql(bob, joinRoomMutation, map[string]any{"id": id})
		Expect(field(joined, "joinRoom", "success")).To(BeTrue())
		Expect(field(joined, "joinRoom", "room", "userRooms")).To(HaveLen(2))

		again := gql(bob, joinRoomMutation, map[string]any{"id": id})
		Expect(field(again, "joinRoom", "message")).To(Equal(chat.MsgAlreadyJoined))

		left := gql(bob, leaveRoomMutation, map[string]any{"id": id})
		Expect(field(left, "leaveRoom", "success")).To(BeTrue())

		gone := gql(bob, leaveRoomMutation, map[string]any{"id": id})
		Expect(field(gone, "leaveRoom", "message")).To(Equal(chat.MsgNotInRoom))
	})

	It("lists messages of a room in creation order", func() {
		id := newRoom(alice, "general")
		for _, content := range []string{"one", "two", "three"} {
			data := gql(alice, createMessageMutation, map[string]any{"c": content, "id": id})
			Expect(field(data, "createMessage", "success")).To(BeTrue())
			Expect(field(data, "createMessage", "msg", "user", "username")).To(Equal("alice"))
		}

		data := gql(bob, messagesQuery, map[string]any{"id": id})
		Expect(field(data, "messages", "messages")).To(Equal([]any{
			map[string]any{"content": "one"},
			map[string]any{"content": "two"},
			map[string]any{"content": "three"},
		}))
	})

	It("requires a token for every room operation", func() {
		data := gql("", createRoomMutation, map[string]any{"n": "General", "r": "general"})
		Expect(field(data, "createRoom", "success")).To(BeFalse())
		Expect(field(data, "createRoom", "message")).To(Equal(chat.MsgUnauthorized))
	})

	It("publishes new rooms to redis", func() {
		sub := env.rdb.Subscribe(env.ctx, chat.TopicRoomCreated)
		DeferCleanup(sub.Close)
		_, err := sub.Receive(env.ctx)
		Expect(err).NotTo(HaveOccurred())

		newRoom(alice, "announcements")

		var msg *redis.Message
		Eventually(sub.Channel()).WithTimeout(2 * time.Second).Should(Receive(&msg))
		var payload map[string]any
		Expect(json.Unmarshal([]byte(msg.Payload), &payload)).To(Succeed())
		Expect(payload).To(HaveKeyWithValue("roomId", "announcements"))
	})
})

var _ = Describe("Subscriptions", func() {
	It("streams messages posted in a room to a websocket subscriber", func() {
		alice := register("alice")
		id := newRoom(alice, "general")

		conn := dialWS()
		writeFrame(conn, wsFrame{Type: "connection_init", Payload: mustJSON(map[string]any{"Authorization": "Bearer " + alice})})
		Expect(readFrame(conn).Type).To(Equal("connection_ack"))

		writeFrame(conn, wsFrame{ID: "1", Type: "subscribe", Payload: mustJSON(map[string]any{
			"query":     `subscription($id: ID!) { messageAdded(roomId: $id) { content user { username } } }`,
			"variables": map[string]any{"id": id},
		})})

		Eventually(func() int {
			return env.app.Broadcaster.Subscribers(chat.MessageAddedTopic(ulid.MustParse(id)))
		}).WithTimeout(2 * time.Second).Should(Equal(1))

		gql(alice, createMessageMutation, map[string]any{"c": "hello", "id": id})

		next := readFrame(conn)
		Expect(next.Type).To(Equal("next"))
		Expect(next.ID).To(Equal("1"))
		var payload map[string]any
		Expect(json.Unmarshal(next.Payload, &payload)).To(Succeed())
		Expect(field(payload, "data", "messageAdded", "content")).To(Equal("hello"))
		Expect(field(payload, "data", "messageAdded", "user", "username")).To(Equal("alice"))

		writeFrame(conn, wsFrame{ID: "1", Type: "complete"})
		Eventually(func() int {
			return env.app.Broadcaster.Subscribers(chat.MessageAddedTopic(ulid.MustParse(id)))
		}).WithTimeout(2 * time.Second).Should(BeZero())
	})

	It("completes subscriptions from anonymous connections", func() {
		conn := dialWS()
		writeFrame(conn, wsFrame{Type: "connection_init"})
		Expect(readFrame(conn).Type).To(Equal("connection_ack"))

		writeFrame(conn, wsFrame{ID: "1", Type: "subscribe", Payload: mustJSON(map[string]any{
			"query": `subscription { roomCreated { id } }`,
		})})
		Expect(readFrame(conn)).To(Equal(wsFrame{ID: "1", Type: "complete"}))
	})
})

type wsFrame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func dialWS() *websocket.Conn {
	GinkgoHelper()
	dialer := websocket.Dialer{Subprotocols: []string{graph.Subprotocol}, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(env.server.URL, "http")+"/graphql/ws", http.Header{})
	Expect(err).NotTo(HaveOccurred())
	_ = resp.Body.Close()
	DeferCleanup(conn.Close)
	return conn
}

func writeFrame(conn *websocket.Conn, f wsFrame) {
	GinkgoHelper()
	Expect(conn.WriteJSON(f)).To(Succeed())
}

func readFrame(conn *websocket.Conn) wsFrame {
	GinkgoHelper()
	Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
	var f wsFrame
	Expect(conn.ReadJSON(&f)).To(Succeed())
	return f
}

func mustJSON(v any) json.RawMessage {
	GinkgoHelper()
	raw, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return raw
}
