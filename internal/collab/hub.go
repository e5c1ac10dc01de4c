package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/editor"
	"github.com/defectscope/annotator/internal/report"
)

var ErrNoEditor = errors.New("no image open for editing")

// EditorFactory opens an editor session on the user's current image. It
// must not block on the network; defects are loaded afterwards.
type EditorFactory func(ctx context.Context, userID string) (*editor.Session, error)

// Room is one user's editor, shared by every tab that user has open.
type Room struct {
	userID  string
	clients map[string]*Client // clientID -> client
	editor  *editor.Session
	seq     int64
}

func NewRoom(userID string) *Room {
	return &Room{
		userID:  userID,
		clients: make(map[string]*Client),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // userID -> room
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	done       chan struct{}
	openMu     sync.Mutex

	newEditor EditorFactory
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewHub(newEditor EditorFactory, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		newEditor:  newEditor,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.quit:
			h.shutdown()
			return
		}
	}
}

// Stop closes every editor and waits for background work to finish.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
	h.wg.Wait()
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Editor returns the live editor session of a user, if any.
func (h *Hub) Editor(userID string) (*editor.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[userID]
	if !ok || room.editor == nil || room.editor.Closed() {
		return nil, false
	}
	return room.editor, true
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.UserID]
	if !ok {
		room = NewRoom(client.UserID)
		h.rooms[client.UserID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	h.logger.Info("client joined", "user", client.UserID, "client", client.ClientID)

	if ed, ok := h.Editor(client.UserID); ok {
		h.sendRender(client, ed)
		return
	}
	if _, err := h.editorFor(client.UserID); err != nil {
		h.logger.Warn("open editor", "error", err, "user", client.UserID)
		client.Send(errorMessage(err.Error()))
	}
}

// Reopen replaces the user's editor with one on their current image. It is
// called when the host session's image changes; users with no open tab are
// left alone.
func (h *Hub) Reopen(userID string) {
	h.openMu.Lock()
	defer h.openMu.Unlock()

	h.mu.Lock()
	room, ok := h.rooms[userID]
	var old *editor.Session
	if ok {
		old, room.editor = room.editor, nil
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	if old != nil {
		old.Close()
	}

	if _, err := h.openEditor(userID); err != nil {
		h.logger.Warn("reopen editor", "error", err, "user", userID)
		h.broadcastError(userID, err)
	}
}

// editorFor returns the user's live editor, opening one on the current
// image when there is none.
func (h *Hub) editorFor(userID string) (*editor.Session, error) {
	if ed, ok := h.Editor(userID); ok {
		return ed, nil
	}
	h.openMu.Lock()
	defer h.openMu.Unlock()
	if ed, ok := h.Editor(userID); ok {
		return ed, nil
	}
	return h.openEditor(userID)
}

// openEditor starts an editor for the room and loads its defects in the
// background, rendering to every client once they arrive. Callers hold openMu.
func (h *Hub) openEditor(userID string) (*editor.Session, error) {
	ed, err := h.newEditor(h.ctx, userID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		h.mu.Unlock()
		ed.Close()
		return nil, ErrNoEditor
	}
	old := room.editor
	room.editor = ed
	h.mu.Unlock()
	if old != nil {
		old.Close()
	}

	h.broadcastRender(userID, ed)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := ed.Load(h.ctx); err != nil {
			h.logger.Debug("defect load discarded", "error", err, "user", userID)
			return
		}
		h.broadcastRender(userID, ed)
	}()
	return ed, nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()

	if len(room.clients) == 0 {
		if room.editor != nil {
			room.editor.Close()
		}
		delete(h.rooms, client.UserID)
	}
	h.mu.Unlock()

	h.logger.Info("client left", "user", client.UserID, "client", client.ClientID)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		if room.editor != nil {
			room.editor.Close()
		}
		for _, c := range room.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
	h.cancel()
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeEditorEvent:
		h.handleEditorEvent(sender, msg)
	case TypeReportGenerate:
		h.handleReportGenerate(sender)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(errorMessage("unknown message type: " + msg.Type))
	}
}

func (h *Hub) handleEditorEvent(sender *Client, msg *Message) {
	ed, err := h.editorFor(sender.UserID)
	if err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}

	ev, err := annotation.DecodeEvent(msg.Payload)
	if err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}
	if _, isLoad := ev.(annotation.Load); isLoad {
		sender.Send(errorMessage("rectangles are loaded by the server"))
		return
	}

	if _, err := ed.Dispatch(ev); err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}
	h.broadcastRender(sender.UserID, ed)
}

func (h *Hub) handleReportGenerate(sender *Client) {
	ed, err := h.editorFor(sender.UserID)
	if err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		userID := sender.UserID

		res, err := ed.GenerateReportNotify(h.ctx, func() {
			h.broadcast(userID, &Message{Type: TypeReportProcessing})
		})
		if err != nil {
			if errors.Is(err, editor.ErrReportInFlight) {
				sender.Send(errorMessage(err.Error()))
				return
			}
			if errors.Is(err, editor.ErrStaleResult) || errors.Is(err, editor.ErrSessionClosed) {
				return
			}
			h.broadcast(userID, reportFailedMessage(err))
			h.broadcastRender(userID, ed)
			return
		}

		payload, _ := json.Marshal(res)
		h.broadcast(userID, &Message{Type: TypeReportDone, Payload: payload})

		h.mu.Lock()
		if room, ok := h.rooms[userID]; ok && room.editor == ed {
			room.editor = nil
		}
		h.mu.Unlock()
	}()
}

func reportFailedMessage(err error) *Message {
	detail := err.Error()
	var svcErr *report.ServiceError
	switch {
	case errors.As(err, &svcErr):
		detail = svcErr.Detail
	case errors.Is(err, editor.ErrCorruptCapture):
		detail = "the generated image is empty or corrupt"
	}
	payload, _ := json.Marshal(ReportFailedPayload{Detail: detail})
	return &Message{Type: TypeReportFailed, Payload: payload}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: payload}
}

func (h *Hub) renderMessage(userID string, ed *editor.Session) *Message {
	payload, err := json.Marshal(ed.View())
	if err != nil {
		h.logger.Error("marshal view", "error", err)
		return nil
	}

	h.mu.Lock()
	var seq int64
	if room, ok := h.rooms[userID]; ok {
		room.seq++
		seq = room.seq
	}
	h.mu.Unlock()

	return &Message{Type: TypeEditorRender, Seq: seq, Payload: payload}
}

func (h *Hub) sendRender(c *Client, ed *editor.Session) {
	if msg := h.renderMessage(c.UserID, ed); msg != nil {
		c.Send(msg)
	}
}

func (h *Hub) broadcastRender(userID string, ed *editor.Session) {
	if msg := h.renderMessage(userID, ed); msg != nil {
		h.broadcast(userID, msg)
	}
}

func (h *Hub) broadcastError(userID string, err error) {
	h.broadcast(userID, errorMessage(err.Error()))
}

func (h *Hub) broadcast(userID string, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
