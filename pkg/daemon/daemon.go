// Package daemon exposes the outlet controller over HTTP.
//
//	GET  /pdus/{host}/outlets/{outlet}         query an outlet
//	PUT  /pdus/{host}/outlets/{outlet}         switch an outlet, body {"on": bool}
//	POST /pdus/{host}/outlets/{outlet}/cycle   power cycle an outlet
//
// Every route accepts a "port" query parameter for agents not on 161.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/OpenCHAMI/pductl/internal/cache"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// CommunityResolver returns the communities to use for a device.
type CommunityResolver func(host string) (pdu.Communities, error)

type Server struct {
	Controller  *pdu.Controller
	Communities CommunityResolver
	Journal     cache.Journal
	CycleDelay  time.Duration
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.StripSlashes,
		// reads take up to ~4s and writes ~8s with the default retries
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Route("/pdus/{host}/outlets/{outlet}", func(r chi.Router) {
		r.Get("/", s.getOutlet)
		r.Put("/", s.setOutlet)
		r.Post("/cycle", s.cycleOutlet)
	})
	return router
}

// RunServer serves the API on endpoint until ctx is cancelled.
func RunServer(ctx context.Context, endpoint string, s *Server) error {
	server := &http.Server{
		Addr:              endpoint,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to shut down daemon cleanly")
		}
	}()

	log.Info().Str("endpoint", endpoint).Msg("starting daemon")
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) getOutlet(w http.ResponseWriter, r *http.Request) {
	ctl, addr, outlet, err := s.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := ctl.QueryState(r.Context(), addr, outlet)
	s.record(addr, outlet, cache.ActionGet, status, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outletState(addr, outlet, status))
}

func (s *Server) setOutlet(w http.ResponseWriter, r *http.Request) {
	ctl, addr, outlet, err := s.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req PowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.On == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: `expected a body of the form {"on": true|false}`})
		return
	}

	action, status := cache.ActionOff, pdu.StatusOff
	if *req.On {
		action, status = cache.ActionOn, pdu.StatusOn
	}
	err = ctl.SetState(r.Context(), addr, outlet, *req.On)
	s.record(addr, outlet, action, status, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outletState(addr, outlet, status))
}

func (s *Server) cycleOutlet(w http.ResponseWriter, r *http.Request) {
	ctl, addr, outlet, err := s.target(r)
	if err != nil {
		writeError(w, err)
		return
	}

	delay := s.CycleDelay
	if raw := r.URL.Query().Get("delay"); raw != "" {
		if delay, err = time.ParseDuration(raw); err != nil || delay < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid delay %q", raw)})
			return
		}
	}

	err = ctl.Cycle(r.Context(), addr, outlet, delay)
	s.record(addr, outlet, cache.ActionCycle, pdu.StatusOn, err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type badRequest struct{ error }

func (s *Server) target(r *http.Request) (*pdu.Controller, pdu.Address, pdu.OutletIndex, error) {
	port := 0
	if raw := r.URL.Query().Get("port"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return nil, pdu.Address{}, 0, badRequest{fmt.Errorf("invalid port %q", raw)}
		}
		port = p
	}
	addr, err := pdu.NewAddress(chi.URLParam(r, "host"), port)
	if err != nil {
		return nil, pdu.Address{}, 0, badRequest{err}
	}

	raw := chi.URLParam(r, "outlet")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return nil, pdu.Address{}, 0, fmt.Errorf("%w: %q", pdu.ErrInvalidOutlet, raw)
	}

	ctl := s.Controller
	if s.Communities != nil {
		communities, err := s.Communities(addr.Host)
		if err != nil {
			return nil, pdu.Address{}, 0, fmt.Errorf("failed to resolve communities for %s: %w", addr.Host, err)
		}
		ctl = ctl.WithCommunities(communities)
	}
	return ctl, addr, pdu.OutletIndex(i), nil
}

func (s *Server) record(addr pdu.Address, outlet pdu.OutletIndex, action string, status pdu.OutletStatus, err error) {
	if s.Journal == nil {
		return
	}
	event := cache.OutletEvent{
		Host:      addr.Host,
		Port:      int(addr.Port),
		Outlet:    int(outlet),
		Action:    action,
		State:     status.String(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		event.State = pdu.StatusUnknown.String()
		event.Error = err.Error()
	}
	if err := s.Journal.Record(event); err != nil {
		log.Warn().Err(err).Msg("failed to record outlet event")
	}
}

func outletState(addr pdu.Address, outlet pdu.OutletIndex, status pdu.OutletStatus) OutletState {
	return OutletState{
		Host:   addr.Host,
		Port:   addr.Port,
		Outlet: int(outlet),
		State:  status.String(),
		On:     status.IsOn(),
	}
}

func writeError(w http.ResponseWriter, err error) {
	var br badRequest
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &br), errors.Is(err, pdu.ErrInvalidOutlet):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case pdu.IsRemoteProtocolError(err):
		code = http.StatusBadGateway
	}
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("outlet request failed")
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
