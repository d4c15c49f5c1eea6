package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"rentalhub-backend/internal/service"
)

// Handler serves the REST API on top of the service layer.
type Handler struct {
	orders        service.OrderService
	deposits      service.DepositService
	inventory     service.InventoryService
	users         service.UserService
	notifications service.NotificationService
	frontendURL   string
}

func NewHandler(
	orders service.OrderService,
	deposits service.DepositService,
	inventory service.InventoryService,
	users service.UserService,
	notifications service.NotificationService,
	frontendURL string,
) *Handler {
	return &Handler{
		orders:        orders,
		deposits:      deposits,
		inventory:     inventory,
		users:         users,
		notifications: notifications,
		frontendURL:   frontendURL,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor returns the authenticated caller or writes 401.
func actor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	a, ok := ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	}
	return a, ok
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

