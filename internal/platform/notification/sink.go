package notification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
)

// Sink receives delivered entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Namer is implemented by sinks that report a stable name. MultiSink uses it
// to record and retry individual failures.
type Namer interface {
	Name() string
}

// SinkName returns the name of s, falling back to its type.
func SinkName(s Sink) string {
	if n, ok := s.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// ---------------------------------------------------------------------------
// File sink
// ---------------------------------------------------------------------------

// FileSink appends each entry body to the file configured for its channel.
// Files are opened per write and never truncated.
type FileSink struct {
	mu    sync.Mutex
	paths map[Channel]string
}

// NewFileSink maps the email and EHR channels onto their log files.
func NewFileSink(emailPath, ehrPath string) *FileSink {
	return &FileSink{paths: map[Channel]string{
		ChannelEmail: emailPath,
		ChannelEHR:   ehrPath,
	}}
}

// Path returns the file used for ch.
func (s *FileSink) Path(ch Channel) string { return s.paths[ch] }

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, ok := s.paths[e.Channel]
	if !ok || path == "" {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, e.Channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(e.Body); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

// ---------------------------------------------------------------------------
// Redis stream sink
// ---------------------------------------------------------------------------

// RedisStreamSink publishes each entry onto a Redis stream with XADD.
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream}
}

// NewRedisStreamSinkFromURL parses a redis:// URL and builds the client.
func NewRedisStreamSinkFromURL(url, stream string) (*RedisStreamSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStreamSink(redis.NewClient(opts), stream), nil
}

func (s *RedisStreamSink) Write(ctx context.Context, e Entry) error {
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: streamValues(e),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStreamSink) Close() error { return s.client.Close() }

// Name and Ping let the sink report on the health endpoint.
func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func streamValues(e Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":         e.ID,
		"channel":    string(e.Channel),
		"subject":    e.Subject,
		"body":       e.Body,
		"created_at": e.CreatedAt.Format(time.RFC3339),
	}
}

// ---------------------------------------------------------------------------
// Webhook sink
// ---------------------------------------------------------------------------

// WebhookSink POSTs each entry as JSON to a fixed URL.
type WebhookSink struct {
	client *resty.Client
	url    string
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookSink{client: client, url: url}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Write(ctx context.Context, e Entry) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(e).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// ---------------------------------------------------------------------------
// Fan-out
// ---------------------------------------------------------------------------

// SinkError reports the sinks of a MultiSink that rejected an entry.
type SinkError struct {
	Sinks []string
	Err   error
}

func (e *SinkError) Error() string { return e.Err.Error() }

func (e *SinkError) Unwrap() error { return e.Err }

// MultiSink writes to every sink in order and joins their errors. When the
// entry names FailedSinks, only those sinks are written.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Entry) error {
	var (
		failed []string
		errs   []error
	)
	for _, s := range m {
		name := SinkName(s)
		if len(e.FailedSinks) > 0 && !slices.Contains(e.FailedSinks, name) {
			continue
		}
		if err := s.Write(ctx, e); err != nil {
			failed = append(failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &SinkError{Sinks: failed, Err: errors.Join(errs...)}
}

// ---------------------------------------------------------------------------
// Memory sink (test double)
// ---------------------------------------------------------------------------

// MemorySink keeps written entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
	Label   string
	Err     error
}

func (m *MemorySink) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return "memory"
}

func (m *MemorySink) Write(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns the entries written to ch, or all of them when ch is empty.
func (m *MemorySink) Entries(ch Channel) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if ch == "" || e.Channel == ch {
			out = append(out, e)
		}
	}
	return out
}
