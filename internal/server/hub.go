package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/config"
	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
	"github.com/cardtable/cardtable-go/internal/table"
)

// room fans one table's events and views out to its connections.
type room struct {
	table   *table.Table
	clients map[*Client]bool
	events  chan rules.Event
	handle  int
	done    chan struct{}
}

// Hub routes websocket clients to tables.
type Hub struct {
	logger   *zap.Logger
	cfg      config.WebSocketConfig
	tables   *table.Manager
	recorder *game.ReplayRecorder
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]*room
}

// NewHub creates a hub. recorder may be nil to disable replays.
func NewHub(cfg config.WebSocketConfig, tables *table.Manager, recorder *game.ReplayRecorder, logger *zap.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Hub{
		logger:   logger,
		cfg:      cfg,
		tables:   tables,
		recorder: recorder,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// Handler serves the websocket endpoint and a JSON table listing.
func (h *Hub) Handler() http.Handler {
	path := h.cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, h.ServeWS)
	mux.HandleFunc("/tables", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.listTables()); err != nil {
			h.logger.Warn("failed to encode table list", zap.Error(err))
		}
	})
	return mux
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(h, conn)
	h.logger.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))

	go c.writePump()
	go c.readPump()
}

func (h *Hub) listTables() []table.Snapshot {
	tables := h.tables.GetAllTables()
	out := make([]table.Snapshot, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Snapshot())
	}
	return out
}

// enter attaches c to tableID, creating the table on first use.
func (h *Hub) enter(c *Client, tableID, name string) (*room, error) {
	t, err := h.tables.CreateTable(tableID, name)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[t.ID]
	if !ok {
		rm = &room{
			table:   t,
			clients: make(map[*Client]bool),
			events:  make(chan rules.Event, 256),
			done:    make(chan struct{}),
		}
		// Listeners run under the engine lock, so they only queue.
		rm.handle = t.Engine().EventBus().Subscribe(func(evt rules.Event) {
			select {
			case rm.events <- evt:
			default:
				h.logger.Warn("event queue full, dropping event",
					zap.String("table_id", t.ID),
					zap.String("event", string(evt.Type)),
				)
			}
		})
		h.rooms[t.ID] = rm
		go h.pump(rm)
	}
	rm.clients[c] = true
	return rm, nil
}

// leave detaches c. The last client out closes the room and its table.
func (h *Hub) leave(c *Client, tableID string) {
	h.mu.Lock()
	rm, ok := h.rooms[tableID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(rm.clients, c)
	empty := len(rm.clients) == 0
	if empty {
		delete(h.rooms, tableID)
	}
	h.mu.Unlock()

	if user := c.User(); user != "" {
		if err := rm.table.Leave(user); err != nil {
			rm.table.RemoveWatcher(user)
		}
	}
	if empty {
		rm.table.Engine().EventBus().Unsubscribe(rm.handle)
		close(rm.done)
		h.tables.RemoveTable(tableID)
		if h.recorder != nil {
			if _, ok := h.recorder.GetReplay(tableID); ok {
				if err := h.recorder.SaveReplay(tableID); err != nil {
					h.logger.Warn("failed to save replay", zap.String("table_id", tableID), zap.Error(err))
				}
			}
		}
	}
}

func (h *Hub) room(tableID string) (*room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rm, ok := h.rooms[tableID]
	return rm, ok
}

func (h *Hub) members(rm *room) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(rm.clients))
	for c := range rm.clients {
		out = append(out, c)
	}
	return out
}

// pump forwards queued engine events outside the engine lock.
func (h *Hub) pump(rm *room) {
	for {
		select {
		case <-rm.done:
			return
		case evt := <-rm.events:
			msg := newEventMessage(evt)
			for _, c := range h.members(rm) {
				c.reply(Reply{Type: MsgEvent, TableID: rm.table.ID, Data: msg.redactFor(c.Seat())})
			}
		}
	}
}

// broadcastViews sends every member its own view of the table.
func (h *Hub) broadcastViews(ctx context.Context, rm *room) {
	for _, c := range h.members(rm) {
		view, err := viewFor(ctx, rm.table.Engine(), c.Seat())
		if err != nil {
			h.logger.Warn("failed to build view", zap.String("table_id", rm.table.ID), zap.Error(err))
			continue
		}
		c.reply(Reply{Type: MsgState, TableID: rm.table.ID, Data: view})
	}
}

// record appends the table's state to its replay.
func (h *Hub) record(rm *room) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordState(rm.table.ID, rm.table.Engine().Snapshot())
}

// viewFor builds a seat's view. Watchers see the table as the first seat with
// both hands and all private state hidden.
func viewFor(ctx context.Context, e *game.Engine, seat *zone.Player) (game.TableView, error) {
	if seat != nil {
		return e.View(ctx, *seat)
	}
	tv, err := e.View(ctx, zone.Self)
	if err != nil {
		return tv, err
	}
	for i := range tv.Players {
		pv := &tv.Players[i]
		for j := range pv.Piles {
			if pv.Piles[j].Zone == zone.Hand.String() {
				pv.Piles[j].Cards = nil
			}
		}
		pv.Foresee = nil
		pv.Choices = nil
	}
	return tv, nil
}
