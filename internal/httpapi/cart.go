package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type CartItemDTO struct {
	ID       int64      `json:"id"`
	Quantity int        `json:"quantity"`
	Subtotal string     `json:"subtotal"`
	Product  ProductDTO `json:"product"`
}

type CartDTO struct {
	ID    int64         `json:"id"`
	Items []CartItemDTO `json:"items"`
	Count int           `json:"count"`
	Total string        `json:"total"`
}

func (s *Server) cartDTO(ctx context.Context, view *models.CartView) CartDTO {
	dto := CartDTO{
		ID:    view.Cart.ID,
		Items: make([]CartItemDTO, 0, len(view.Items)),
		Count: len(view.Items),
		Total: models.FormatMoney(view.Total),
	}
	for _, item := range view.Items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:       item.ID,
			Quantity: item.Quantity,
			Subtotal: models.FormatMoney(item.Subtotal()),
			Product:  s.productDTO(ctx, item.Product),
		})
	}
	return dto
}

// currentCart resolves the visitor's open cart, creating it when needed.
func (s *Server) currentCart(r *http.Request) (*models.Cart, error) {
	return store.ResolveCart(r.Context(), s.db, identityFrom(r.Context()))
}

func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, cartID int64) {
	view, err := store.GetCartView(r.Context(), s.db, cartID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.cartDTO(r.Context(), view))
}

// afterCartChange answers a cart mutation: JSON clients get the cart, form
// posts are redirected to it.
func (s *Server) afterCartChange(w http.ResponseWriter, r *http.Request, cartID int64) {
	if wantsJSON(r) {
		s.respondCart(w, r, cartID)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.currentCart(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondCart(w, r, cart.ID)
}

// cartCount never creates a cart; visitors without one have zero lines.
func (s *Server) cartCount(w http.ResponseWriter, r *http.Request) {
	count, err := store.CountCartItems(r.Context(), s.db, identityFrom(r.Context()))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	values, err := requestValues(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	quantity, err := intValue(values, "quantity", 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}

	cart, err := s.currentCart(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if _, err := store.AddItemBySlug(r.Context(), s.db, cart.ID, chi.URLParam(r, "slug"), quantity); err != nil {
		s.respondErr(w, r, err)
		return
	}

	s.afterCartChange(w, r, cart.ID)
}

// updateCartItem sets a line's quantity; zero or less removes the line.
func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id must be a positive integer")
		return
	}

	values, err := requestValues(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	quantity, err := intValue(values, "quantity", 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}

	cart, err := s.currentCart(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := store.UpdateItem(r.Context(), s.db, cart.ID, itemID, quantity); err != nil {
		s.respondErr(w, r, err)
		return
	}

	s.afterCartChange(w, r, cart.ID)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id must be a positive integer")
		return
	}

	cart, err := s.currentCart(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if err := store.RemoveItem(r.Context(), s.db, cart.ID, itemID); err != nil {
		s.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
