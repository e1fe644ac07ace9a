// Package notification delivers rendered text blocks to append-only channels
// (simulated email, simulated EHR update) and keeps an in-memory record of
// every delivery attempt.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Channels
// ---------------------------------------------------------------------------

// Channel names the destination a block is written to.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelEHR   Channel = "ehr"
)

var (
	ErrUnknownChannel = errors.New("unknown notification channel")
	ErrNotFound       = errors.New("notification not found")
)

// Delivery statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// ---------------------------------------------------------------------------
// Entry
// ---------------------------------------------------------------------------

// Entry is a single block handed to a sink.
type Entry struct {
	ID        string            `json:"id"`
	Channel   Channel           `json:"channel"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// FailedSinks names the sinks of a MultiSink that rejected the entry.
	// Retry writes only to these.
	FailedSinks []string `json:"failed_sinks,omitempty"`
}

// ---------------------------------------------------------------------------
// Block builder
// ---------------------------------------------------------------------------

// RuleWidth is the width of the '=' delimiter line between blocks.
const RuleWidth = 80

// Rule is the delimiter line written around block headings.
var Rule = strings.Repeat("=", RuleWidth)

// Block accumulates the lines of one text block.
type Block struct {
	sb strings.Builder
}

// Rule writes a delimiter line.
func (b *Block) Rule() *Block {
	b.sb.WriteString(Rule)
	b.sb.WriteByte('\n')
	return b
}

// Line writes s verbatim followed by a newline.
func (b *Block) Line(s string) *Block {
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
	return b
}

// Linef writes a formatted line followed by a newline.
func (b *Block) Linef(format string, args ...any) *Block {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteByte('\n')
	return b
}

// Blank writes an empty line.
func (b *Block) Blank() *Block {
	b.sb.WriteByte('\n')
	return b
}

func (b *Block) String() string { return b.sb.String() }

// ---------------------------------------------------------------------------
// Log
// ---------------------------------------------------------------------------

// Log hands entries to a Sink and remembers each attempt.
type Log struct {
	sink    Sink
	logger  zerolog.Logger
	now     func() time.Time
	observe func(Entry)

	mu      sync.RWMutex
	entries []*Entry
	byID    map[string]*Entry
}

// NewLog constructs a Log that writes through sink.
func NewLog(sink Sink, logger zerolog.Logger) *Log {
	return &Log{
		sink:   sink,
		logger: logger.With().Str("component", "notification").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		byID:   make(map[string]*Entry),
	}
}

// SetClock overrides the time source used for CreatedAt.
func (l *Log) SetClock(now func() time.Time) { l.now = now }

// SetObserver registers fn to be called after every delivery attempt.
func (l *Log) SetObserver(fn func(Entry)) { l.observe = fn }

// Deliver writes body to the channel. A failed write is recorded with
// StatusFailed and its error is returned; the entry is kept either way.
func (l *Log) Deliver(ctx context.Context, ch Channel, subject, body string, meta map[string]string) (Entry, error) {
	if ch != ChannelEmail && ch != ChannelEHR {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	e := &Entry{
		ID:        uuid.New().String(),
		Channel:   ch,
		Subject:   subject,
		Body:      body,
		CreatedAt: l.now(),
		Metadata:  meta,
	}

	err := l.sink.Write(ctx, *e)
	if err != nil {
		e.Status = StatusFailed
		e.Error = err.Error()
		e.FailedSinks = failedSinks(err)
		l.logger.Error().Err(err).Str("channel", string(ch)).Str("entry_id", e.ID).Msg("notification delivery failed")
	} else {
		e.Status = StatusSent
		l.logger.Debug().Str("channel", string(ch)).Str("entry_id", e.ID).Msg("notification delivered")
	}

	out := *e
	if l.observe != nil {
		l.observe(out)
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.byID[e.ID] = e
	l.mu.Unlock()

	return out, err
}

// Get returns a copy of the entry with the given id.
func (l *Log) Get(id string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *e, nil
}

// Entries returns the entries for ch in delivery order. An empty ch matches
// every channel.
func (l *Log) Entries(ch Channel) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if ch == "" || e.Channel == ch {
			out = append(out, *e)
		}
	}
	return out
}

// Retry writes a failed entry to the sink again.
func (l *Log) Retry(ctx context.Context, id string) (Entry, error) {
	l.mu.RLock()
	e, ok := l.byID[id]
	var snapshot Entry
	if ok {
		snapshot = *e
	}
	l.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if snapshot.Status != StatusFailed {
		return Entry{}, fmt.Errorf("notification %s is not in failed status (current: %s)", id, snapshot.Status)
	}

	err := l.sink.Write(ctx, snapshot)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		e.Error = err.Error()
		if names := failedSinks(err); len(names) > 0 {
			e.FailedSinks = names
		}
		l.logger.Error().Err(err).Str("entry_id", e.ID).Strs("sinks", e.FailedSinks).Msg("notification retry failed")
		return *e, err
	}
	e.Status = StatusSent
	e.Error = ""
	e.FailedSinks = nil
	return *e, nil
}

func failedSinks(err error) []string {
	var se *SinkError
	if errors.As(err, &se) {
		return se.Sinks
	}
	return nil
}

// Stats counts entries per status.
func (l *Log) Stats() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := make(map[string]int)
	for _, e := range l.entries {
		stats[e.Status]++
	}
	return stats
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

// Handler exposes the delivery record over HTTP.
type Handler struct {
	log *Log
}

func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// RegisterRoutes registers the notification routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleList)
	g.GET("/notifications/stats", h.HandleStats)
	g.GET("/notifications/:id", h.HandleGet)
	g.POST("/notifications/:id/retry", h.HandleRetry)
}

// HandleList handles GET /notifications?channel=...
func (h *Handler) HandleList(c echo.Context) error {
	ch := Channel(c.QueryParam("channel"))
	if ch != "" && ch != ChannelEmail && ch != ChannelEHR {
		return echo.NewHTTPError(http.StatusBadRequest, "channel must be email or ehr")
	}
	return c.JSON(http.StatusOK, h.log.Entries(ch))
}

// HandleGet handles GET /notifications/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	e, err := h.log.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

// HandleRetry handles POST /notifications/:id/retry.
func (h *Handler) HandleRetry(c echo.Context) error {
	e, err := h.log.Retry(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

// HandleStats handles GET /notifications/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.log.Stats())
}
