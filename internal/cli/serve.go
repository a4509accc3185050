package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/mallstore/internal/identity"
	"github.com/roach88/mallstore/internal/metrics"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/storefront"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr            string
	ShutdownTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront JSON API with /metrics and /healthz",
		Long: `Serve the storefront over HTTP.

Routes:
  GET    /api/collections/{collection}
  POST   /api/collections/{collection}          {"item_key": "...", "quantity": 1}
  PATCH  /api/collections/{collection}/{entry}  {"quantity": 2}
  DELETE /api/collections/{collection}/{entry}
  DELETE /api/collections/{collection}?item=...
  GET    /api/membership
  GET    /api/membership/{item}
  GET    /api/cart/count
  GET    /api/orders[?mine=true]
  PUT    /api/orders/{order}/status             {"status": "shipped"}
  GET    /api/approvals/stats
  GET    /healthz
  GET    /metrics

With auth.jwt_secret set, callers authenticate with an
"Authorization: Bearer <token>" header; otherwise every request acts as --as.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: metrics.addr from config)")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(a.svc, a.log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return out.Fail(WrapExitError(ExitCommandError, "server failed", err))
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}

// api serves the storefront over HTTP.
type api struct {
	svc *storefront.Service
	log logrus.FieldLogger
}

// NewRouter builds the HTTP routes for svc.
func NewRouter(svc *storefront.Service, log logrus.FieldLogger) *mux.Router {
	h := &api{svc: svc, log: log}

	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/collections/{collection}", h.handleList).Methods(http.MethodGet)
	s.HandleFunc("/collections/{collection}", h.handleAdd).Methods(http.MethodPost)
	s.HandleFunc("/collections/{collection}", h.handleRemoveByItem).Methods(http.MethodDelete).Queries("item", "{item}")
	s.HandleFunc("/collections/{collection}/{entry}", h.handleUpdate).Methods(http.MethodPatch)
	s.HandleFunc("/collections/{collection}/{entry}", h.handleRemove).Methods(http.MethodDelete)
	s.HandleFunc("/membership", h.handleMembershipSet).Methods(http.MethodGet)
	s.HandleFunc("/membership/{item}", h.handleMembership).Methods(http.MethodGet)
	s.HandleFunc("/cart/count", h.handleCartCount).Methods(http.MethodGet)
	s.HandleFunc("/orders", h.handleOrders).Methods(http.MethodGet)
	s.HandleFunc("/orders/{order}/status", h.handleOrderStatus).Methods(http.MethodPut)
	s.HandleFunc("/approvals/stats", h.handleApprovalStats).Methods(http.MethodGet)

	return r
}

type addRequest struct {
	ItemKey  string `json:"item_key"`
	Quantity int    `json:"quantity"`
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *api) handleList(w http.ResponseWriter, r *http.Request) {
	c := model.CollectionType(mux.Vars(r)["collection"])
	entries, err := h.svc.ListCollection(requestContext(r), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *api) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, model.NewValidationError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	c := model.CollectionType(mux.Vars(r)["collection"])
	e, err := h.svc.AddToCollection(requestContext(r), c, req.ItemKey, model.Payload{Quantity: req.Quantity})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *api) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, model.NewValidationError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	vars := mux.Vars(r)
	e, err := h.svc.UpdateCollectionEntry(requestContext(r), model.CollectionType(vars["collection"]), vars["entry"], model.Payload{Quantity: req.Quantity})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *api) handleRemove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.remove(w, r, model.CollectionType(vars["collection"]), model.Target{EntryID: vars["entry"]})
}

func (h *api) handleRemoveByItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.remove(w, r, model.CollectionType(vars["collection"]), model.Target{ItemKey: vars["item"]})
}

func (h *api) remove(w http.ResponseWriter, r *http.Request, c model.CollectionType, target model.Target) {
	if err := h.svc.RemoveFromCollection(requestContext(r), c, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *api) handleMembership(w http.ResponseWriter, r *http.Request) {
	member, err := h.svc.CheckMembership(requestContext(r), mux.Vars(r)["item"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"member": member})
}

func (h *api) handleMembershipSet(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.MembershipSet(requestContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"items": items})
}

func (h *api) handleCartCount(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.CartCount(requestContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": total})
}

func (h *api) handleOrders(w http.ResponseWriter, r *http.Request) {
	list := h.svc.ListGroupedOrders
	if r.URL.Query().Get("mine") == "true" {
		list = h.svc.ListCustomerOrders
	}
	orders, err := list(requestContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *api) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, model.NewValidationError(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	order := mux.Vars(r)["order"]
	if err := h.svc.UpdateOrderStatus(requestContext(r), order, req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_no": order, "status": req.Status})
}

func (h *api) handleApprovalStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetApprovalStats(requestContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// requestContext carries the request's bearer token to the identity provider.
func requestContext(r *http.Request) context.Context {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return identity.WithToken(r.Context(), auth)
	}
	return r.Context()
}

// statusFor maps model error codes to HTTP statuses.
func statusFor(err error) int {
	switch model.CodeOf(err) {
	case model.ErrCodeAuthenticationRequired:
		return http.StatusUnauthorized
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeRemoteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}

	code := string(model.CodeOf(err))
	if code == "" {
		code = "INTERNAL"
	}
	writeJSON(w, status, CLIError{Code: code, Message: err.Error()})
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
