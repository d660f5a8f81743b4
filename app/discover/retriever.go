package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/veni-vici/app/ham"
)

const DefaultMaxTries = 10

// Gateway draws one raw record from a random catalog page. A nil record
// with a nil error means the page was empty.
type Gateway interface {
	FetchOneRandomRecord(ctx context.Context) (*ham.Record, error)
}

type State int

const (
	StateDrawing State = iota
	StateNormalizing
	StateEvaluating
	StateBackoff
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDrawing:
		return "drawing"
	case StateNormalizing:
		return "normalizing"
	case StateEvaluating:
		return "evaluating"
	case StateBackoff:
		return "backoff"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Backoff holds the per-attempt delay units. Delays grow linearly with the
// attempt number.
type Backoff struct {
	EmptyPage time.Duration
	Rejected  time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		EmptyPage: 50 * time.Millisecond,
		Rejected:  100 * time.Millisecond,
	}
}

func (b Backoff) EmptyPageDelay(attempt int) time.Duration {
	return b.EmptyPage * time.Duration(attempt)
}

func (b Backoff) RejectedDelay(attempt int) time.Duration {
	return b.Rejected * time.Duration(attempt)
}

type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retriever runs rejection sampling against the catalog until an item
// passes every constraint or the attempt budget runs out.
type Retriever struct {
	gateway Gateway
	apiKey  string
	backoff Backoff
	sleep   SleepFunc
}

func NewRetriever(gateway Gateway, apiKey string) *Retriever {
	return &Retriever{
		gateway: gateway,
		apiKey:  strings.TrimSpace(apiKey),
		backoff: DefaultBackoff(),
		sleep:   sleepContext,
	}
}

func (r *Retriever) SetBackoff(backoff Backoff) {
	r.backoff = backoff
}

func (r *Retriever) SetSleep(sleep SleepFunc) {
	r.sleep = sleep
}

type retrieval struct {
	bans       BanSet
	seen       SeenSet
	maxTries   int
	attempt    int
	state      State
	record     *ham.Record
	item       Item
	delay      time.Duration
	emptyPages int
	rejections map[Reason]int
}

func (run *retrieval) transition(to State) {
	slog.Debug("Retrieval state changed",
		"from", run.state.String(),
		"to", to.String(),
		"attempt", run.attempt)
	run.state = to
}

// GetRandomArtworkAvoiding returns a random item that has an image, matches
// none of bans and whose id is not in seenIDs. bans and seenIDs are read
// once and never modified. maxTries <= 0 selects DefaultMaxTries.
func (r *Retriever) GetRandomArtworkAvoiding(ctx context.Context, bans []BanEntry, seenIDs []int64, maxTries int) (Item, error) {
	if r.apiKey == "" {
		return Item{}, &ConfigError{Err: ham.ErrMissingAPIKey}
	}
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}

	run := &retrieval{
		bans:       NewBanSet(bans),
		seen:       NewSeenSet(seenIDs),
		maxTries:   maxTries,
		attempt:    1,
		state:      StateDrawing,
		rejections: make(map[Reason]int),
	}

	for {
		switch run.state {
		case StateDrawing:
			record, err := r.gateway.FetchOneRandomRecord(ctx)
			if err != nil {
				return Item{}, r.drawError(ctx, run.attempt, err)
			}
			if record == nil {
				run.emptyPages++
				run.delay = r.backoff.EmptyPageDelay(run.attempt)
				run.transition(StateBackoff)
				continue
			}
			run.record = record
			run.transition(StateNormalizing)

		case StateNormalizing:
			run.item = Normalize(*run.record)
			run.transition(StateEvaluating)

		case StateEvaluating:
			reason := Evaluate(run.item, run.bans, run.seen)
			if reason == ReasonNone {
				run.transition(StateDone)
				continue
			}
			run.rejections[reason]++
			slog.Debug("Candidate rejected", "attempt", run.attempt, "reason", string(reason), "title", run.item.Title)
			run.delay = r.backoff.RejectedDelay(run.attempt)
			run.transition(StateBackoff)

		case StateBackoff:
			// No point waiting once the budget is spent.
			if run.attempt >= run.maxTries {
				run.transition(StateFailed)
				continue
			}
			if err := r.sleep(ctx, run.delay); err != nil {
				return Item{}, fmt.Errorf("retrieval interrupted: %w", err)
			}
			run.attempt++
			run.record = nil
			run.transition(StateDrawing)

		case StateDone:
			slog.Debug("Artwork found", "attempt", run.attempt, "title", run.item.Title)
			return run.item, nil

		case StateFailed:
			return Item{}, &NotFoundError{
				Attempts:   run.maxTries,
				EmptyPages: run.emptyPages,
				Rejections: run.rejections,
			}
		}
	}
}

func (r *Retriever) drawError(ctx context.Context, attempt int, err error) error {
	if errors.Is(err, ham.ErrMissingAPIKey) {
		return &ConfigError{Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("retrieval interrupted: %w", ctxErr)
	}
	return &TransportError{Attempt: attempt, Err: err}
}
