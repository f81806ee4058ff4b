// Package stream broadcasts pipeline step events to websocket clients so a
// browser or another automation can follow a run live.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/beaker/internal/logging"
	"github.com/conneroisu/beaker/internal/pipeline"
)

// StepEvent is one frame on the event stream.
type StepEvent struct {
	Type      string          `json:"type"`
	Step      string          `json:"step,omitempty"`
	Status    pipeline.Status `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  string          `json:"duration,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Broadcaster fans step events out to connected websocket clients.
// Broadcast never blocks the pipeline: slow clients drop frames.
type Broadcaster struct {
	clients      map[*websocket.Conn]chan []byte
	clientsMutex sync.RWMutex

	logger logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewBroadcaster creates a broadcaster ready to accept clients.
func NewBroadcaster(logger logging.Logger) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		clients: make(map[*websocket.Conn]chan []byte),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Callback returns a pipeline callback publishing every step result.
func (b *Broadcaster) Callback() pipeline.StepCallback {
	return func(result pipeline.StepResult) {
		b.Publish(StepEvent{
			Type:      "step",
			Step:      result.Name,
			Status:    result.Status,
			Error:     result.Error,
			Duration:  result.Duration.String(),
			Timestamp: time.Now(),
		})
	}
}

// Publish sends an event to every connected client without blocking.
func (b *Broadcaster) Publish(event StepEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	b.clientsMutex.RLock()
	defer b.clientsMutex.RUnlock()
	for _, send := range b.clients {
		select {
		case send <- data:
		default:
			// Client not keeping up, drop the frame.
		}
	}
}

// HandleEvents upgrades an HTTP request to a websocket subscription on the
// event stream. Registered at /events.
func (b *Broadcaster) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn(r.Context(), err, "websocket accept failed")
		}
		return
	}

	send := make(chan []byte, 64)

	b.clientsMutex.Lock()
	b.clients[conn] = send
	b.clientsMutex.Unlock()

	defer func() {
		b.clientsMutex.Lock()
		delete(b.clients, conn)
		b.clientsMutex.Unlock()
		conn.Close(websocket.StatusNormalClosure, "stream closed")
	}()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-r.Context().Done():
			return
		case data := <-send:
			writeCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Shutdown disconnects all clients and stops the broadcaster.
func (b *Broadcaster) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.cancel()

		b.clientsMutex.Lock()
		defer b.clientsMutex.Unlock()
		for conn := range b.clients {
			conn.Close(websocket.StatusGoingAway, "shutting down")
		}
		b.clients = make(map[*websocket.Conn]chan []byte)
	})
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.clientsMutex.RLock()
	defer b.clientsMutex.RUnlock()
	return len(b.clients)
}

// Serve starts an HTTP server exposing the event stream at /events until
// ctx is cancelled.
func Serve(ctx context.Context, addr string, b *Broadcaster, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", b.HandleEvents)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		b.Shutdown()
	}()

	if logger != nil {
		logger.Info(ctx, "event stream listening", "addr", addr)
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
