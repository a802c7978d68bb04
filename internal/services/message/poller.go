package message

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/op/go-logging.v1"

	"boxchat/internal/domain"
	"boxchat/internal/instrument"
	"boxchat/internal/protocol/cursor"
)

// DefaultInterval is the pause between poll rounds.
const DefaultInterval = 2 * time.Second

// Receiver is the part of MessageService the Poller needs.
type Receiver interface {
	ReceiveMessages(ctx context.Context, since domain.MessageID) ([]domain.DecryptedMessage, domain.MessageID, error)
}

// Handler is called once per opened message, in id order.
type Handler func(domain.DecryptedMessage)

// PollerConfig configures a Poller. Only Receiver and Handler are required.
type PollerConfig struct {
	Receiver Receiver
	Handler  Handler
	Log      *logging.Logger
	Clock    clock.Clock
	Interval time.Duration

	// Store and Account, when both set, persist the cursor after every
	// round that moved it. Account.Cursor is the starting point.
	Store   domain.AccountStore
	Account domain.AccountProfile
}

// Poller repeatedly fetches, opens and hands off inbound messages.
type Poller struct {
	recv     Receiver
	handle   Handler
	log      *logging.Logger
	clock    clock.Clock
	interval time.Duration
	store    domain.AccountStore
	account  domain.AccountProfile

	mu     sync.Mutex
	cursor cursor.Cursor
}

// NewPoller builds a Poller starting at cfg.Account.Cursor.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Receiver == nil || cfg.Handler == nil {
		return nil, errors.New("poller: receiver and handler are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Log == nil {
		cfg.Log = logging.MustGetLogger("poller")
	}
	return &Poller{
		recv:     cfg.Receiver,
		handle:   cfg.Handler,
		log:      cfg.Log,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		store:    cfg.Store,
		account:  cfg.Account,
		cursor:   cursor.Cursor(cfg.Account.Cursor),
	}, nil
}

// Cursor returns the highest message id processed so far.
func (p *Poller) Cursor() domain.MessageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor.SinceID()
}

// Run polls until ctx is done, waiting Interval between rounds. Failed
// rounds are logged and retried on the next tick. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.log.Noticef("Polling every %s from message %d", p.interval, p.Cursor())
	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.log.Warningf("Poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

// PollOnce runs a single fetch, open, advance round and returns how many
// messages were handed to the Handler.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	instrument.Polls.Inc()
	since := p.Cursor()

	msgs, next, err := p.recv.ReceiveMessages(ctx, since)
	if err != nil {
		instrument.PollFailures.Inc()
		return 0, err
	}
	for _, m := range msgs {
		p.handle(m)
	}

	p.mu.Lock()
	prev := p.cursor
	p.cursor = p.cursor.Advance(next)
	cur := p.cursor
	p.mu.Unlock()

	if cur != prev {
		p.log.Debugf("Cursor advanced %d -> %d", prev, cur)
		p.persist(cur.SinceID())
	}
	return len(msgs), nil
}

func (p *Poller) persist(id domain.MessageID) {
	if p.store == nil || p.account.Username == "" {
		return
	}
	p.account.Cursor = id
	if err := p.store.SaveAccountProfile(p.account); err != nil {
		p.log.Errorf("Saving cursor %d: %v", id, err)
	}
}
