package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans snapshot diffs out to the subscribers of each conversation.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
	last        map[string]*domain.Snapshot
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		last:        make(map[string]*domain.Snapshot),
		logger:      logger,
	}
}

// Subscribe registers a listener for a conversation. The channel is closed
// when the conversation ends or cancel is called.
func (sm *StreamManager) Subscribe(conversationID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[conversationID]; !ok {
		sm.subscribers[conversationID] = make(map[chan string]struct{})
	}
	sm.subscribers[conversationID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		subs, ok := sm.subscribers[conversationID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(sm.subscribers, conversationID)
		}
	}
}

// Publish broadcasts the difference between snap and the last published
// snapshot of the same conversation. An ended snapshot closes the stream.
func (sm *StreamManager) Publish(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	id := snap.ConversationID

	sm.mu.Lock()
	diff := domain.Diff(sm.last[id], snap)
	if snap.Ended {
		delete(sm.last, id)
	} else {
		sm.last[id] = snap
	}
	sm.mu.Unlock()

	if diff != nil {
		payload, err := json.Marshal(diff)
		if err != nil {
			sm.logger.Error("SSE: failed to encode diff", "conversation_id", id, "error", err)
		} else {
			sm.Broadcast(id, string(payload))
		}
	}
	if snap.Ended {
		sm.closeSubscribers(id)
	}
}

// Close announces the end of a conversation and closes its streams.
func (sm *StreamManager) Close(conversationID string) {
	sm.mu.Lock()
	_, known := sm.last[conversationID]
	delete(sm.last, conversationID)
	sm.mu.Unlock()

	if known {
		ended := true
		payload, _ := json.Marshal(domain.SnapshotDiff{ConversationID: conversationID, Ended: &ended})
		sm.Broadcast(conversationID, string(payload))
	}
	sm.closeSubscribers(conversationID)
}

// Broadcast sends msg to every subscriber of the conversation, dropping it
// for subscribers whose buffer is full.
func (sm *StreamManager) Broadcast(conversationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: broadcasting", "conversation_id", conversationID, "payload_size", len(msg))
	for ch := range sm.subscribers[conversationID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "conversation_id", conversationID)
		}
	}
}

func (sm *StreamManager) closeSubscribers(conversationID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[conversationID] {
		close(ch)
	}
	delete(sm.subscribers, conversationID)
}

// SubscribeEvents handles GET /conversations/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Snapshot(r.Context(), id); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.InfoContext(r.Context(), "SSE: subscribed", "conversation_id", id)

	var watch []string
	if v := r.URL.Query().Get("watch"); v != "" {
		watch = strings.Split(v, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.InfoContext(r.Context(), "SSE: client disconnected", "conversation_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !matchesWatch(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// matchesWatch reports whether the diff touches one of the watched fields.
func matchesWatch(msg string, watch []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch strings.TrimSpace(field) {
		case "node":
			if diff.CurrentNodeID != nil {
				return true
			}
		case "tools":
			if diff.Tools != nil {
				return true
			}
		case "messages":
			if len(diff.Messages) > 0 {
				return true
			}
		case "history":
			if len(diff.History) > 0 {
				return true
			}
		case "ended":
			if diff.Ended != nil {
				return true
			}
		}
	}
	return false
}
