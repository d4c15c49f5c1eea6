package http

import (
	"net/http"

	"rentalhub-backend/internal/domain"
)

type updateKYCRequest struct {
	Tier     string `json:"tier"`
	Approved bool   `json:"approved"`
}

type notificationsResponse struct {
	Items []domain.Notification `json:"items"`
	Total int32                 `json:"total"`
	Page  int32                 `json:"page"`
}

func (h *Handler) ProvisionUnits(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	report, err := h.inventory.ProvisionUnits(r.Context(), a, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ProductStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.inventory.GetStock(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUserProfile(r.Context(), a.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateKYC(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req updateKYCRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.UpdateKYC(r.Context(), a, pathID(r), domain.KYCStatus(req.Tier), req.Approved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "pageSize", 20)
	items, total, err := h.notifications.GetNotifications(r.Context(), a.UserID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Items: items, Total: total, Page: page})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(r.Context(), a.UserID, pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
