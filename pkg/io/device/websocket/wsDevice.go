package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
)

var ErrClosed = errors.New("endpoint closed")

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	frameQueue = 256
)

// conn is the part of *websocket.Conn the endpoint uses.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (int, []byte, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type wsEndpoint struct {
	id     uuid.UUID
	client conn
	caps   device.Capabilities

	wmu sync.Mutex // gorilla allows one concurrent writer

	mu         sync.Mutex
	lastActive time.Time
	closed     bool
	frames     chan []byte
	done       chan struct{}
}

type event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

func New(client *websocket.Conn, caps device.Capabilities) *wsEndpoint {
	return newEndpoint(client, caps)
}

func newEndpoint(client conn, caps device.Capabilities) *wsEndpoint {
	ep := &wsEndpoint{
		id:         uuid.New(),
		client:     client,
		caps:       caps,
		lastActive: time.Now(),
		done:       make(chan struct{}),
	}
	if caps.AudioSource {
		ep.frames = make(chan []byte, frameQueue)
	}
	return ep
}

// Caps implements device.Endpoint.
func (w *wsEndpoint) Caps() device.Capabilities {
	return w.caps
}

// ID implements device.Endpoint.
func (w *wsEndpoint) ID() device.EndpointID {
	return device.EndpointID(w.id)
}

// Transport implements device.Endpoint.
func (w *wsEndpoint) Transport() device.Transport {
	return device.TransportWS
}

func (w *wsEndpoint) Touch() {
	w.mu.Lock()
	w.lastActive = time.Now()
	w.mu.Unlock()
}

// LastActive implements device.Endpoint.
func (w *wsEndpoint) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// IsAlive implements device.Endpoint.
func (w *wsEndpoint) IsAlive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *wsEndpoint) Done() <-chan struct{} { return w.done }

// AudioFrames implements device.Endpoint.
func (w *wsEndpoint) AudioFrames() <-chan []byte {
	return w.frames
}

func (w *wsEndpoint) write(fn func() error) error {
	if !w.IsAlive() {
		return ErrClosed
	}
	w.wmu.Lock()
	defer w.wmu.Unlock()
	_ = w.client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := fn(); err != nil {
		w.Close()
		return err
	}
	return nil
}

// SendAudioFrame implements device.Endpoint.
func (w *wsEndpoint) SendAudioFrame(_ int, frame []byte) error {
	return w.write(func() error { return w.client.WriteMessage(websocket.BinaryMessage, frame) })
}

// SendEvent implements device.Endpoint.
func (w *wsEndpoint) SendEvent(name string, payload any) error {
	return w.write(func() error { return w.client.WriteJSON(event{Name: name, Payload: payload}) })
}

// Serve pumps the connection until it fails: binary messages are microphone
// frames, pings keep the peer honest. It closes the endpoint on return.
func (w *wsEndpoint) Serve() {
	defer w.Close()

	_ = w.client.SetReadDeadline(time.Now().Add(pongWait))
	w.client.SetPongHandler(func(string) error {
		w.Touch()
		return w.client.SetReadDeadline(time.Now().Add(pongWait))
	})

	go w.pinger()

	for {
		mt, data, err := w.client.ReadMessage()
		if err != nil {
			return
		}
		w.Touch()
		if mt != websocket.BinaryMessage || w.frames == nil {
			continue
		}
		select {
		case w.frames <- data:
		default:
			// nobody listening; drop
		}
	}
}

func (w *wsEndpoint) pinger() {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			err := w.write(func() error {
				return w.client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
			if err != nil {
				return
			}
		}
	}
}

// Close implements device.Endpoint.
func (w *wsEndpoint) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()
	return w.client.Close()
}
