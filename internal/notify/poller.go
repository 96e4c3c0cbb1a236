// Package notify records daily reminders for owners who still have
// incomplete todos. Delivery (service-worker push, etc.) is an external
// concern; this poller only issues the "anything left for today?" query and
// writes at most one notification per owner per day.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/internal/store"
)

// checkTimeout is the maximum time allowed for a single check pass.
const checkTimeout = 30 * time.Second

// Poller periodically checks registered owners for incomplete todos today.
type Poller struct {
	store    store.Store
	log      *logrus.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	owners    []string
	running   bool
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// New creates a Poller with the given check interval.
func New(s store.Store, log *logrus.Logger, interval time.Duration) *Poller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		store:     s,
		log:       log,
		interval:  interval,
		now:       time.Now,
		triggerCh: make(chan struct{}, 1),
	}
}

// RegisterOwner adds an owner to the check rotation.
func (p *Poller) RegisterOwner(ownerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.owners {
		if id == ownerID {
			return
		}
	}
	p.owners = append(p.owners, ownerID)
}

// Start launches the polling goroutine. Calling Start on a running poller
// is a no-op; a stopped poller can be started again.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// TriggerNow requests an immediate check without waiting for the ticker.
func (p *Poller) TriggerNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A check is already queued; skip to avoid blocking.
	}
}

func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runCheck()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.runCheck()
		case <-p.triggerCh:
			p.runCheck()
		}
	}
}

func (p *Poller) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	if err := p.CheckOnce(ctx); err != nil {
		p.log.WithError(err).Warn("reminder check failed")
	}
}

// CheckOnce runs a single reminder pass: for every registered owner with at
// least one incomplete todo today and no notification recorded yet for the
// day, one notification is written.
func (p *Poller) CheckOnce(ctx context.Context) error {
	p.mu.Lock()
	owners := make([]string, len(p.owners))
	copy(owners, p.owners)
	p.mu.Unlock()

	today := model.DateOf(p.now())
	for _, ownerID := range owners {
		exists, err := p.store.HasNotificationForDate(ctx, ownerID, today)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		count, err := p.store.CountIncompleteTodos(ctx, ownerID, today)
		if err != nil {
			return err
		}
		if count == 0 {
			continue
		}
		n := model.Notification{
			OwnerID: ownerID,
			Date:    today,
			Message: fmt.Sprintf("You have %d unfinished todos for today", count),
		}
		if err := p.store.CreateNotification(ctx, n); err != nil {
			return err
		}
		p.log.WithFields(logrus.Fields{
			"owner": ownerID,
			"count": count,
		}).Debug("reminder recorded")
	}
	return nil
}
