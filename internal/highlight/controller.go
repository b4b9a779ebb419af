// Package highlight keeps a per-document token snapshot fresh while the
// document is being edited.
//
// A Controller coalesces refresh requests behind a debounce delay, lexes a
// bounded prefix of the document off the caller's path, and publishes the
// result as an immutable Snapshot. Readers query formatting for one block at
// a time through FormatBlock and never observe a half-built snapshot.
package highlight

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/novic/internal/cachemanager"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/pubsub"
	"github.com/zjrosen/novic/internal/syntax"
	"github.com/zjrosen/novic/internal/tracing"
)

// Defaults for Options fields left at zero.
const (
	DefaultDebounce        = 150 * time.Millisecond
	DefaultRetry           = 50 * time.Millisecond
	DefaultMaxDocumentSize = 500_000
	DefaultSampleSize      = 50_000
	DefaultMaxTokens       = 4000
	DefaultCacheTTL        = 5 * time.Minute
)

// Options configure a Controller. Zero values take the defaults above.
type Options struct {
	// Debounce is the quiet period before a non-immediate refresh runs.
	Debounce time.Duration
	// Retry is the delay used when a refresh arrives while one is running.
	Retry time.Duration
	// MaxDocumentSize is the size in runes above which highlighting is off.
	MaxDocumentSize int
	// SampleSize is how many leading runes are lexed.
	SampleSize int
	// MaxTokens caps the tokens kept in a snapshot.
	MaxTokens int

	Scheduler Scheduler
	Tracer    trace.Tracer

	// Cache memoizes lexer output by language and sample text. Nil disables it.
	Cache    cachemanager.CacheManager[string, []syntax.Token]
	CacheTTL time.Duration

	// Broker receives a RefreshedEvent after every snapshot swap. When nil
	// the controller owns a private broker.
	Broker *pubsub.Broker[RefreshEvent]

	// OnRefresh is called after every snapshot swap, outside any lock.
	OnRefresh func(*Snapshot)
}

// DefaultOptions returns the reference tuning with a wall clock scheduler.
func DefaultOptions() Options {
	return Options{
		Debounce:        DefaultDebounce,
		Retry:           DefaultRetry,
		MaxDocumentSize: DefaultMaxDocumentSize,
		SampleSize:      DefaultSampleSize,
		MaxTokens:       DefaultMaxTokens,
		Scheduler:       ClockScheduler{},
		CacheTTL:        DefaultCacheTTL,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.Retry <= 0 {
		o.Retry = d.Retry
	}
	if o.MaxDocumentSize <= 0 {
		o.MaxDocumentSize = d.MaxDocumentSize
	}
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	if o.Scheduler == nil {
		o.Scheduler = d.Scheduler
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("highlight")
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = d.CacheTTL
	}
	return o
}

// RefreshEvent describes a completed refresh.
type RefreshEvent struct {
	ControllerID string
	Snapshot     *Snapshot
	Duration     time.Duration
}

// Stats are running counters for one controller.
type Stats struct {
	Refreshes int
	Deferred  int
	LexErrors int
	CacheHits int
	Oversize  int
}

type lexInput struct {
	lang *syntax.Language
	text string
}

// Controller owns the highlight snapshot of one document.
type Controller struct {
	id         string
	doc        Document
	opts       Options
	broker     *pubsub.Broker[RefreshEvent]
	ownsBroker bool
	lexCache   *cachemanager.ReadThroughCache[string, []syntax.Token, lexInput]

	snap atomic.Pointer[Snapshot]

	mu         sync.Mutex
	pending    *syntax.Language
	timer      Timer
	armSeq     uint64
	busy       bool
	closed     bool
	generation uint64
	stats      Stats
}

// New returns a Controller for doc with an empty snapshot installed.
func New(doc Document, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		id:     uuid.NewString(),
		doc:    doc,
		opts:   opts,
		broker: opts.Broker,
	}
	if c.broker == nil {
		c.broker = pubsub.NewBroker[RefreshEvent]()
		c.ownsBroker = true
	}
	c.lexCache = cachemanager.NewReadThroughCache(opts.Cache, c.lexUncached, opts.CacheTTL)
	c.snap.Store(emptySnapshot)
	return c
}

// ID identifies the controller in logs, traces and events.
func (c *Controller) ID() string { return c.id }

// Snapshot returns the current snapshot. Never nil.
func (c *Controller) Snapshot() *Snapshot { return c.snap.Load() }

// FormatBlock queries the current snapshot. See Snapshot.FormatBlock.
func (c *Controller) FormatBlock(blockStart, blockEnd int) []Format {
	return c.Snapshot().FormatBlock(blockStart, blockEnd)
}

// Subscribe returns refresh events until ctx is done or the controller closes.
func (c *Controller) Subscribe(ctx context.Context) <-chan pubsub.Event[RefreshEvent] {
	return c.broker.Subscribe(ctx)
}

// Broker exposes the event broker for tea listeners.
func (c *Controller) Broker() *pubsub.Broker[RefreshEvent] { return c.broker }

// Stats returns a copy of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// RequestRefresh records lang as the language to highlight with and schedules
// a refresh. A nil lang clears highlighting. With immediate the refresh runs
// on the calling goroutine before returning; otherwise the debounce timer is
// restarted, so a burst of calls collapses into one refresh using the last
// language and the text present when the timer fires.
func (c *Controller) RequestRefresh(lang *syntax.Language, immediate bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = lang
	c.stopTimerLocked()
	if !immediate {
		c.armLocked(c.opts.Debounce)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.executeRefresh(true)
}

// Close stops pending work. Later requests are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	if c.ownsBroker {
		c.broker.Close()
	}
}

func (c *Controller) stopTimerLocked() {
	// Bumping the sequence invalidates a callback that already fired and is
	// waiting on the lock.
	c.armSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) armLocked(d time.Duration) {
	c.armSeq++
	seq := c.armSeq
	c.timer = c.opts.Scheduler.AfterFunc(d, func() { c.fire(seq) })
}

func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.armSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.executeRefresh(false)
}

func (c *Controller) executeRefresh(immediate bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.busy {
		c.stats.Deferred++
		c.stopTimerLocked()
		c.armLocked(c.opts.Retry)
		c.mu.Unlock()
		log.Debug(log.CatHighlight, "refresh deferred", "id", c.id, "retry", c.opts.Retry)
		return
	}
	c.busy = true
	lang := c.pending
	c.mu.Unlock()

	began := time.Now()
	snap, out := c.build(lang, immediate)
	elapsed := time.Since(began)

	c.mu.Lock()
	c.generation++
	snap.generation = c.generation
	c.snap.Store(snap)
	c.busy = false
	c.stats.Refreshes++
	if out.lexErr {
		c.stats.LexErrors++
	}
	if out.cacheHit {
		c.stats.CacheHits++
	}
	if snap.oversize {
		c.stats.Oversize++
	}
	c.mu.Unlock()

	log.Debug(log.CatHighlight, "refreshed",
		"id", c.id,
		"lang", snap.language,
		"tokens", snap.Len(),
		"generation", snap.generation,
		"elapsed", elapsed)

	c.broker.Publish(pubsub.RefreshedEvent, RefreshEvent{
		ControllerID: c.id,
		Snapshot:     snap,
		Duration:     elapsed,
	})
	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh(snap)
	}
}

type buildOutcome struct {
	lexErr   bool
	cacheHit bool
}

func (c *Controller) build(lang *syntax.Language, immediate bool) (*Snapshot, buildOutcome) {
	var out buildOutcome
	ctx, span := c.opts.Tracer.Start(context.Background(), tracing.SpanRefresh,
		trace.WithAttributes(
			attribute.String(tracing.AttrDocumentID, c.id),
			attribute.Bool(tracing.AttrImmediate, immediate),
		))
	defer span.End()

	text := c.doc.Text()
	if lang == nil {
		return newSnapshot("", nil, nil), out
	}
	span.SetAttributes(attribute.String(tracing.AttrLanguage, lang.Name))

	size := len(text)
	if size > c.opts.MaxDocumentSize {
		size = utf8.RuneCountInString(text)
	}
	span.SetAttributes(attribute.Int(tracing.AttrDocumentLen, size))
	if size > c.opts.MaxDocumentSize {
		span.SetAttributes(attribute.Bool(tracing.AttrOversize, true))
		log.Info(log.CatHighlight, "document too large, highlighting off",
			"id", c.id, "runes", size, "max", c.opts.MaxDocumentSize)
		snap := newSnapshot(lang.Name, nil, lang.Style)
		snap.oversize = true
		return snap, out
	}

	sample, truncated := runePrefix(text, c.opts.SampleSize)
	span.SetAttributes(attribute.Int(tracing.AttrSampleLen, utf8.RuneCountInString(sample)))

	key := fmt.Sprintf("%s|%p|%016x", lang.Name, lang, xxhash.Sum64String(sample))
	tokens, hit, err := c.lexCache.Get(ctx, key, lexInput{lang: lang, text: sample})
	out.cacheHit = hit
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))
	if err != nil {
		out.lexErr = true
		tokens = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(tracing.AttrErrorMessage, err.Error()))
		log.ErrorErr(log.CatHighlight, "lex failed, showing plain text", err, "id", c.id, "lang", lang.Name)
	}

	raw := len(tokens)
	if raw > c.opts.MaxTokens {
		tokens = tokens[:c.opts.MaxTokens:c.opts.MaxTokens]
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrTokensRaw, raw),
		attribute.Int(tracing.AttrTokensKept, len(tokens)),
	)

	snap := newSnapshot(lang.Name, tokens, lang.Style)
	snap.rawTokens = raw
	snap.truncated = truncated
	return snap, out
}

func (c *Controller) lexUncached(ctx context.Context, in lexInput) ([]syntax.Token, error) {
	_, span := c.opts.Tracer.Start(ctx, tracing.SpanLex)
	defer span.End()
	return safeLex(in.lang.Lexer, in.text)
}

// safeLex runs lx, turning a panic into an error.
func safeLex(lx syntax.Lexer, text string) (tokens []syntax.Token, err error) {
	if lx == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = fmt.Errorf("lexer panic: %v", r)
		}
	}()
	return lx(text)
}

// runePrefix returns the first n runes of s and whether anything was cut.
func runePrefix(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
