// Package mqtt publishes decode results to an mqtt broker.
package mqtt

import (
	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the number of milliseconds to wait for pending work when
// disconnecting.
const quiesce = 250

// Message contains the properties of one mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// Handler wraps the mqtt client. Messages sent to channel C are published
// by Service.
type Handler struct {
	client mqttlib.Client
	// C is the channel Service publishes from.
	C chan Message
}

// New returns an unconnected handler.
func New() *Handler {
	return &Handler{
		C: make(chan Message),
	}
}

// Connect connects to the mqtt broker. With an empty broker the handler
// stays inert and messages are dropped.
func (m *Handler) Connect(broker, clientID string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	m.client = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect re-establishes the connection to the configured broker.
func (m *Handler) ReConnect() error {
	t := m.client.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect ends the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.client == nil {
		return nil
	}

	m.client.Disconnect(quiesce)
	return nil
}

// Service publishes the messages arriving on channel C. Without a client or
// a topic a message is dropped. Service returns when C is closed.
func (m *Handler) Service() {
	for msg := range m.C {
		if m.client == nil || msg.Topic == "" {
			continue
		}

		go m.send(msg)
	}
}

// send publishes one message, reconnecting first if the broker connection
// was lost. Publishing is asynchronous, so the delivery result is only
// checked after the token completes.
func (m *Handler) send(msg Message) {
	if !m.client.IsConnected() {
		debug.DebugLog.Print("mqtt broker isn't connected, reconnecting")

		if err := m.ReConnect(); err != nil {
			debug.ErrorLog.Printf("can't reconnect to mqtt broker: %v", err)
			return
		}
	}

	debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
	t := m.client.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

	<-t.Done()
	if err := t.Error(); err != nil {
		debug.ErrorLog.Printf("publishing topic %v: %v", msg.Topic, err)
	}
}
