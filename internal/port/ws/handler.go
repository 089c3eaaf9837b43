package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	redisadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/broadcast"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Handler owns the websocket surface: upgrades, connection bookkeeping and
// routing of inbound bid frames.
type Handler struct {
	hub         *Hub
	itemService service.ItemService
	bidService  service.BidService
	connRepo    repository.ConnectionRepository
	broadcaster broadcast.EventBroadcaster
	upgrader    websocket.Upgrader
	log         logger.Logger
}

func NewHandler(
	hub *Hub,
	itemService service.ItemService,
	bidService service.BidService,
	connRepo repository.ConnectionRepository,
	broadcaster broadcast.EventBroadcaster,
	log logger.Logger,
) *Handler {
	return &Handler{
		hub:         hub,
		itemService: itemService,
		bidService:  bidService,
		connRepo:    connRepo,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth and origin policy belong to the gateway in front of us.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws/auctions/{auctionID}", h.serveAuction).Methods(http.MethodGet)
	return router
}

func (h *Handler) serveAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	item, err := h.itemService.GetItem(r.Context(), auctionID)
	if err != nil {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Websocket upgrade failed for auction %s: %v", auctionID, err)
		return
	}

	client := &Client{
		connectionID: uuid.New().String(),
		userID:       userID,
		auctionID:    auctionID,
		channels: []string{
			redisadapter.AuctionTopic(auctionID),
			redisadapter.UserChannel(userID),
		},
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		handler: h,
	}

	record := entity.NewConnection(client.connectionID, userID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := h.connRepo.Save(ctx, record); err != nil {
		h.log.Warnf("Failed to register connection %s: %v", client.connectionID, err)
	}
	cancel()

	h.hub.Register(client)
	go client.writePump()
	go client.readPump()

	h.log.Infof("User %s connected to auction %s (connection %s)", userID, auctionID, client.connectionID)
	h.broadcaster.SendConnectionStatus(userID, client.connectionID, entity.ConnectionConnected)
	h.sendSnapshot(client, item)
}

// sendSnapshot replays the auction's current state to a newly connected
// client so it does not have to wait for the next event.
func (h *Handler) sendSnapshot(client *Client, item *entity.Item) {
	status := entity.AuctionStatusEvent{
		Type:      entity.EventTypeAuctionStatus,
		EventID:   uuid.New().String(),
		ItemID:    item.ID,
		Status:    item.Status,
		Timestamp: time.Now().UTC(),
	}
	if payload, err := json.Marshal(status); err == nil {
		client.trySend(payload)
	}

	if item.CurrentBidID == "" {
		return
	}
	update := entity.BidUpdateEvent{
		Type:         entity.EventTypeBidUpdate,
		EventID:      uuid.New().String(),
		ItemID:       item.ID,
		CurrentPrice: item.CurrentPrice,
		Timestamp:    time.Now().UTC(),
	}
	if payload, err := json.Marshal(update); err == nil {
		client.trySend(payload)
	}
}

func (h *Handler) disconnect(client *Client) {
	h.hub.Unregister(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.connRepo.MarkDisconnected(ctx, client.connectionID); err != nil {
		h.log.Warnf("Failed to mark connection %s disconnected: %v", client.connectionID, err)
	}

	h.broadcaster.SendConnectionStatus(client.userID, client.connectionID, entity.ConnectionDisconnected)
	h.log.Infof("Connection %s for user %s closed", client.connectionID, client.userID)
}

func (h *Handler) touch(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.connRepo.Touch(ctx, client.connectionID); err != nil {
		h.log.Debugf("Failed to touch connection %s: %v", client.connectionID, err)
	}
}
