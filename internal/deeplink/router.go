package deeplink

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/glance/internal/metrics"
	"github.com/starford/glance/internal/models"
)

// InboundSignal is one OS launch delivery. Instance identifies the delivery
// itself, not its payload: the OS re-presenting the same launch reuses the
// token, while two separate launches of the same URI carry different ones.
type InboundSignal struct {
	Instance string
	URI      string
}

// NewInboundSignal wraps uri in a fresh signal instance.
func NewInboundSignal(uri string) *InboundSignal {
	return &InboundSignal{Instance: uuid.NewString(), URI: uri}
}

// State is the router's delivery state.
type State int

const (
	Idle State = iota
	PendingDelivery
)

func (s State) String() string {
	if s == PendingDelivery {
		return "pending"
	}
	return "idle"
}

// Router holds at most one undelivered message. Deliver and Pull are
// mutually exclusive.
type Router struct {
	links   Links
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	last     string // instance token of the last processed signal
	pending  models.DeepLinkMessage
	hasValue bool
}

// NewRouter creates an idle router decoding URIs with links.
func NewRouter(links Links, logger *slog.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{links: links, logger: logger, metrics: m}
}

// Deliver processes an inbound signal and reports whether a message became
// pending. A signal whose instance was already processed is ignored.
// Unrecognized payloads are dropped and leave any pending message in place.
// A signal without an instance token is assigned one.
func (r *Router) Deliver(sig *InboundSignal) bool {
	if sig == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sig.Instance == "" {
		sig.Instance = uuid.NewString()
	}
	if sig.Instance == r.last {
		r.metrics.DeepLink(metrics.LinkDuplicate)
		r.logger.Debug("deeplink: duplicate signal suppressed", slog.String("instance", sig.Instance))
		return false
	}
	r.last = sig.Instance

	msg, ok := r.links.Decode(sig.URI)
	if !ok {
		r.metrics.DeepLink(metrics.LinkDropped)
		r.logger.Debug("deeplink: unrecognized signal dropped",
			slog.String("instance", sig.Instance),
			slog.String("uri", sig.URI))
		return false
	}

	r.pending = msg
	r.hasValue = true
	r.metrics.DeepLink(metrics.LinkDelivered)
	r.logger.Info("deeplink: message pending",
		slog.String("instance", sig.Instance),
		slog.String("type", string(msg.Kind)))
	return true
}

// Pull hands the pending message to the caller exactly once. It never blocks
// on anything but the router's own lock.
func (r *Router) Pull() (models.DeepLinkMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasValue {
		r.metrics.DeepLink(metrics.LinkPullEmpty)
		return models.DeepLinkMessage{}, false
	}
	msg := r.pending
	r.pending = models.DeepLinkMessage{}
	r.hasValue = false
	r.metrics.DeepLink(metrics.LinkPulled)
	return msg, true
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasValue {
		return PendingDelivery
	}
	return Idle
}
