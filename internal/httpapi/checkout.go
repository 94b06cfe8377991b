package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// readShipping collects the shipping fields of a checkout post. Fields left
// out fall back to the user's profile at checkout.
func (s *Server) readShipping(w http.ResponseWriter, r *http.Request) (models.ShippingInfo, error) {
	values, err := requestValues(w, r)
	if err != nil {
		return models.ShippingInfo{}, err
	}

	field := func(key string) string { return strings.TrimSpace(values[key]) }
	shipping := models.ShippingInfo{
		FullName:     field("full_name"),
		Email:        field("email"),
		Phone:        field("phone"),
		AddressLine1: field("address_line1"),
		AddressLine2: field("address_line2"),
		City:         field("city"),
		State:        field("state"),
		PostalCode:   field("postal_code"),
		Country:      field("country"),
	}
	if err := s.validate.Struct(shipping); err != nil {
		return models.ShippingInfo{}, err
	}
	return shipping, nil
}

// checkoutRequest builds the request for the signed-in visitor's open cart.
// ok is false once a response has been written.
func (s *Server) checkoutRequest(w http.ResponseWriter, r *http.Request) (store.CheckoutRequest, bool) {
	identity := identityFrom(r.Context())
	if !identity.Authenticated() {
		s.respondErr(w, r, database.ErrUnauthorized)
		return store.CheckoutRequest{}, false
	}

	shipping, err := s.readShipping(w, r)
	if err != nil {
		s.respondValidation(w, err)
		return store.CheckoutRequest{}, false
	}

	cart, err := store.ResolveCart(r.Context(), s.db, identity)
	if err != nil {
		s.respondErr(w, r, err)
		return store.CheckoutRequest{}, false
	}

	return store.CheckoutRequest{
		Identity: identity,
		CartID:   cart.ID,
		Shipping: shipping,
	}, true
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := s.checkoutRequest(w, r)
	if !ok {
		return
	}

	order, err := s.checkout.Checkout(r.Context(), req)
	if errors.Is(err, database.ErrEmptyCart) {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// payAndPlaceOrder sends the visitor to the hosted payment page, or places
// the order directly when payment is unavailable.
func (s *Server) payAndPlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := s.checkoutRequest(w, r)
	if !ok {
		return
	}

	result, err := s.checkout.PayAndCheckout(r.Context(), req)
	if errors.Is(err, database.ErrEmptyCart) {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if result.RedirectURL != "" {
		http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
		return
	}
	respondJSON(w, http.StatusCreated, result.Order)
}

// checkoutSuccess is the landing page after payment. The order itself is not
// known here.
func (s *Server) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Thank you! Your payment was received.",
		"order":   nil,
	})
}
