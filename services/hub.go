package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Real-time topics. Subscribers get a full snapshot on connect and a fresh
// full snapshot after every relevant change; there is no incremental
// diffing.
const (
	TopicActivePuzzle = "active_puzzle"
	TopicPuzzles      = "puzzles"
	TopicUsers        = "users"
	topicLeaderboard  = "leaderboard"
)

// LeaderboardTopic names the per-puzzle leaderboard feed.
func LeaderboardTopic(puzzleID uint) string {
	return fmt.Sprintf("%s:%d", topicLeaderboard, puzzleID)
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	puzzleService     *PuzzleService
	submissionService *SubmissionService
	userService       *UserService
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	topic  string
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(puzzleService *PuzzleService, submissionService *SubmissionService, userService *UserService) *Hub {
	return &Hub{
		clients:           make(map[*Client]bool),
		broadcast:         make(chan []byte),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		puzzleService:     puzzleService,
		submissionService: submissionService,
		userService:       userService,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client registered: %s on topic %s - Total clients: %d", client.id, client.topic, len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s on topic %s - Total clients: %d", client.id, client.topic, len(h.clients))
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			// Write lock: slow clients are evicted from the map here.
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastToTopic pushes a message to every subscriber of one topic.
func (h *Hub) BroadcastToTopic(topic string, messageType string, payload interface{}) {
	message := Message{
		Type:    messageType,
		Payload: payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	// Write lock: slow clients are evicted from the map here.
	h.mutex.Lock()
	for client := range h.clients {
		if client.topic == topic {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(h.clients, client)
			}
		}
	}
	h.mutex.Unlock()
}

// PublishSnapshot recomputes and broadcasts a topic's full result set.
// Handlers call this after any mutation that affects the topic.
func (h *Hub) PublishSnapshot(topic string) {
	messageType, payload, err := h.snapshot(topic)
	if err != nil {
		log.Printf("Error building snapshot for topic %s: %v", topic, err)
		return
	}
	h.BroadcastToTopic(topic, messageType, payload)
}

func (h *Hub) snapshot(topic string) (string, interface{}, error) {
	switch {
	case topic == TopicActivePuzzle:
		puzzle, err := h.puzzleService.GetActivePuzzle()
		return "active_puzzle", puzzle, err

	case topic == TopicPuzzles:
		puzzles, err := h.puzzleService.GetPuzzles()
		return "puzzles", puzzles, err

	case topic == TopicUsers:
		users, err := h.userService.GetAllUsers()
		return "users", users, err

	case strings.HasPrefix(topic, topicLeaderboard+":"):
		raw := strings.TrimPrefix(topic, topicLeaderboard+":")
		puzzleID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return "", nil, fmt.Errorf("invalid leaderboard topic %q", topic)
		}
		submissions, err := h.submissionService.GetLeaderboard(uint(puzzleID))
		return "leaderboard", submissions, err

	default:
		return "", nil, errors.New("unknown topic")
	}
}

// ValidTopic reports whether a client may subscribe to the given topic.
func ValidTopic(topic string) bool {
	if topic == TopicActivePuzzle || topic == TopicPuzzles || topic == TopicUsers {
		return true
	}
	if raw, found := strings.CutPrefix(topic, topicLeaderboard+":"); found {
		_, err := strconv.ParseUint(raw, 10, 32)
		return err == nil
	}
	return false
}

func (h *Hub) RegisterClient(conn *websocket.Conn, topic string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		topic:  topic,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	// Seed the new subscriber with the current state so it never has to
	// wait for the next mutation.
	client.sendSnapshot()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) sendSnapshot() {
	messageType, payload, err := c.hub.snapshot(c.topic)
	if err != nil {
		log.Printf("Error building snapshot for client %s on topic %s: %v", c.id, c.topic, err)
		return
	}
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling snapshot: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: "pong", Payload: "pong"})
		c.send <- data

	case "request_state":
		c.sendSnapshot()

	default:
		log.Printf("Unknown message type: %s from client %s on topic %s", msg.Type, c.id, c.topic)
	}
}
