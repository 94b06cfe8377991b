package httpapi

import (
	"net/http"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
)

const (
	defaultOrdersLimit = 20
	maxOrdersLimit     = 100
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.Authenticated() {
		s.respondErr(w, r, database.ErrUnauthorized)
		return
	}

	limit := queryInt(r, "limit", defaultOrdersLimit, maxOrdersLimit)
	page, err := store.ListOrdersCursor(r.Context(), s.db, identity.UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.Authenticated() {
		s.respondErr(w, r, database.ErrUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	order, err := store.GetOrderForUser(r.Context(), s.db, identity.UserID, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
