// Package events pushes realtime updates to the admin and cashier
// dashboards over websocket.
package events

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	EventTableCreate    = "table_create"
	EventTableUpdate    = "table_update"
	EventTableDelete    = "table_delete"
	EventOrderCreate    = "order_create"
	EventOrderUpdate    = "order_update"
	EventPaymentSettled = "payment_settled"
	EventTokenRotated   = "token_rotated"
	EventStaffNotif     = "staff_notification"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected dashboard client keyed by role.
type Hub struct {
	clients map[*websocket.Conn]string
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

func BroadcastTableUpdate(event string, data interface{}) {
	broadcast(Message{Event: event, Data: data})
}

func BroadcastOrderUpdate(event string, data interface{}) {
	broadcast(Message{Event: event, Data: data})
}

func BroadcastPaymentSettled(data interface{}) {
	broadcast(Message{Event: EventPaymentSettled, Data: data})
}

// BroadcastTokenRotated tells dashboards the old QR artifact for a table
// is no longer valid.
func BroadcastTokenRotated(tableID uint, newToken string) {
	broadcast(Message{
		Event: EventTokenRotated,
		Data: map[string]interface{}{
			"table_id": tableID,
			"token":    newToken,
		},
	})
}

func BroadcastStaffNotification(message string) {
	broadcast(Message{Event: EventStaffNotif, Data: message})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending event to client: %v", err)
		}
	}
}
