package wire

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Sender is the slice of a session the router needs: identity, auth state and
// a best-effort send.
type Sender interface {
	ClientID() string
	Authenticated() bool
	Send(v any)
}

// HandlerFunc processes one decoded frame for a session. Returning a *Error
// sends the coded error to the client; any other error is logged and an
// INTERNAL frame is sent.
type HandlerFunc func(s Sender, raw []byte) error

type route struct {
	handle HandlerFunc
	// preAuth routes run before the join handshake completes.
	preAuth bool
}

// PanicSink receives recovered dispatch panics.
type PanicSink interface {
	ReportPanic(where string, recovered any, stack []byte)
}

// Router maps a frame's type discriminator to its handler. Registration
// happens once at startup; dispatch runs on map tick goroutines.
type Router struct {
	routes  map[string]route
	log     *zap.Logger
	crash   PanicSink
	unknown func(msgType string)
}

// NewRouter builds an empty router. unknown is invoked for unregistered
// types (metrics hook); it may be nil.
func NewRouter(log *zap.Logger, crash PanicSink, unknown func(msgType string)) *Router {
	return &Router{
		routes:  make(map[string]route),
		log:     log,
		crash:   crash,
		unknown: unknown,
	}
}

// Register binds a handler to a message type. Panics on duplicate
// registration; that is a programming error caught at startup.
func (r *Router) Register(msgType string, h HandlerFunc) {
	r.register(msgType, h, false)
}

// RegisterPreAuth binds a handler that may run before authentication (the
// join handshake itself).
func (r *Router) RegisterPreAuth(msgType string, h HandlerFunc) {
	r.register(msgType, h, true)
}

func (r *Router) register(msgType string, h HandlerFunc, preAuth bool) {
	if _, dup := r.routes[msgType]; dup {
		panic(fmt.Sprintf("wire: duplicate handler for %q", msgType))
	}
	r.routes[msgType] = route{handle: h, preAuth: preAuth}
}

// CanHandle reports whether a handler is registered for the type.
func (r *Router) CanHandle(msgType string) bool {
	_, ok := r.routes[msgType]
	return ok
}

// Dispatch routes one raw frame. Malformed and unknown frames are dropped
// (and counted); handler errors become error frames; panics are recovered so
// a bad frame never kills the tick.
func (r *Router) Dispatch(s Sender, raw []byte) {
	msgType, err := PeekType(raw)
	if err != nil || msgType == "" {
		r.log.Debug("dropping malformed frame", zap.String("client", s.ClientID()), zap.Error(err))
		return
	}
	rt, ok := r.routes[msgType]
	if !ok {
		if r.unknown != nil {
			r.unknown(msgType)
		}
		r.log.Debug("dropping unknown frame type",
			zap.String("client", s.ClientID()), zap.String("type", msgType))
		return
	}
	if !rt.preAuth && !s.Authenticated() {
		s.Send(NewError(CodeAuthInvalid, "join first"))
		return
	}
	r.safeCall(s, msgType, rt.handle, raw)
}

func (r *Router) safeCall(s Sender, msgType string, h HandlerFunc, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			r.log.Error("panic in handler",
				zap.String("type", msgType),
				zap.String("client", s.ClientID()),
				zap.Any("panic", rec))
			if r.crash != nil {
				r.crash.ReportPanic("handler:"+msgType, rec, stack)
			}
			s.Send(NewError(CodeInternal, "internal error"))
		}
	}()
	if err := h(s, raw); err != nil {
		var we *Error
		if errors.As(err, &we) {
			s.Send(NewError(we.Code, we.Message))
			return
		}
		r.log.Warn("handler error",
			zap.String("type", msgType),
			zap.String("client", s.ClientID()),
			zap.Error(err))
		s.Send(NewError(CodeInternal, "internal error"))
	}
}
