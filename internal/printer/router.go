package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
)

// Sink delivers a rendered job to a printer address.
type Sink interface {
	Send(ctx context.Context, addr string, job []byte) error
}

// TCPSink writes raw ESC/POS to port 9100 style printers.
type TCPSink struct {
	Timeout time.Duration
}

func (s TCPSink) Send(ctx context.Context, addr string, job []byte) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("write printer %s: %w", addr, err)
	}
	return nil
}

type route struct {
	addr   string
	copies int
}

// Router sends each ticket to the printer configured for its group.
type Router struct {
	sink     Sink
	routes   map[string]route
	fallback string
}

func NewRouter(cfg *config.PrinterRoutes, sink Sink) *Router {
	r := &Router{sink: sink, routes: make(map[string]route)}
	if cfg == nil {
		return r
	}
	r.fallback = cfg.Default
	for _, rt := range cfg.Routes {
		copies := rt.Copies
		if copies <= 0 {
			copies = 1
		}
		r.routes[rt.Group] = route{addr: rt.Address, copies: copies}
	}
	return r
}

// Enabled reports whether any printer is configured.
func (r *Router) Enabled() bool {
	return r.fallback != "" || len(r.routes) > 0
}

func (r *Router) resolve(group string) (route, bool) {
	if rt, ok := r.routes[group]; ok {
		return rt, true
	}
	if r.fallback != "" {
		return route{addr: r.fallback, copies: 1}, true
	}
	return route{}, false
}

// Print renders and sends every ticket. Groups without a printer are
// skipped. A failing printer does not stop the others; all failures are
// returned joined.
func (r *Router) Print(ctx context.Context, h Header, tickets []kot.Ticket) error {
	var errs []error
	for _, t := range tickets {
		rt, ok := r.resolve(t.Group)
		if !ok {
			zap.L().Debug("no printer for ticket group", zap.String("group", t.Group))
			continue
		}
		job := RenderTicket(h, t)
		for i := 0; i < rt.copies; i++ {
			if err := r.sink.Send(ctx, rt.addr, job); err != nil {
				errs = append(errs, fmt.Errorf("group %s: %w", t.Group, err))
				break
			}
		}
	}
	return errors.Join(errs...)
}
