package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cox101/Savannah-Microservice/internal/auth"
	"github.com/cox101/Savannah-Microservice/internal/customer"
	"github.com/cox101/Savannah-Microservice/internal/order"
)

type Server struct {
	customers *customer.Service
	orders    *order.Service
	logger    *slog.Logger
	mux       *http.ServeMux
}

func NewServer(customers *customer.Service, orders *order.Service, authSecret string, logger *slog.Logger) *Server {
	s := &Server{
		customers: customers,
		orders:    orders,
		logger:    logger,
	}

	protected := http.NewServeMux()
	s.routes(protected)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.health)
	root.Handle("/", auth.Middleware(authSecret, logger)(protected))
	s.mux = root
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/customers", s.createCustomer)
	mux.HandleFunc("GET /v1/customers", s.listCustomers)
	mux.HandleFunc("GET /v1/customers/{customerID}", s.getCustomer)
	mux.HandleFunc("PUT /v1/customers/{customerID}", s.updateCustomer)
	mux.HandleFunc("DELETE /v1/customers/{customerID}", s.deleteCustomer)

	mux.HandleFunc("POST /v1/orders", s.createOrder)
	mux.HandleFunc("GET /v1/orders", s.listOrders)
	mux.HandleFunc("GET /v1/orders/{orderID}", s.getOrder)
	mux.HandleFunc("PATCH /v1/orders/{orderID}/status", s.updateOrderStatus)
	mux.HandleFunc("POST /v1/orders/{orderID}/notifications/resend", s.resendNotification)
	mux.HandleFunc("GET /v1/orders/{orderID}/notifications", s.listOrderNotifications)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// writeDomainError maps workflow errors onto the API contract: 400 for bad
// input, 404 for unknown ids, 409 for state conflicts, 500 otherwise.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		customerVal *customer.ValidationError
		orderVal    *order.ValidationError
		transition  *order.InvalidTransitionError
	)

	switch {
	case errors.As(err, &customerVal), errors.As(err, &orderVal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, customer.ErrCustomerNotFound), errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transition),
		errors.Is(err, customer.ErrCodeTaken),
		errors.Is(err, customer.ErrHasOrders):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
