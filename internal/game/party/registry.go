package party

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists party state.
type Store interface {
	SaveParty(ctx context.Context, s Snapshot) error
	DeleteParty(ctx context.Context, partyID string) error
}

// Registry owns every active party. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	parties  map[string]*Party
	byMember map[string]string // userID → partyID
	rules    Rules
	store    Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistry creates an empty Registry. store may be nil.
//
// Precondition: logger must be non-nil.
func NewRegistry(rules Rules, store Store, logger *zap.Logger) *Registry {
	return &Registry{
		parties:  make(map[string]*Party),
		byMember: make(map[string]string),
		rules:    rules,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Rules returns the registry's party rules.
func (r *Registry) Rules() Rules { return r.rules }

// Create forms a party led by leader with one other member.
//
// Postcondition: both players map to the new party, or ErrAlreadyInParty.
func (r *Registry) Create(ctx context.Context, leader, member Member) (*Party, error) {
	if leader.UserID == member.UserID {
		return nil, fmt.Errorf("creating party: leader and member are both %q", leader.UserID)
	}
	r.mu.Lock()
	for _, uid := range []string{leader.UserID, member.UserID} {
		if _, ok := r.byMember[uid]; ok {
			r.mu.Unlock()
			return nil, fmt.Errorf("creating party with %s: %w", uid, ErrAlreadyInParty)
		}
	}
	p := newParty(uuid.NewString(), r.rules.Exponent)
	p.Leader = leader.UserID
	now := r.now()
	for _, m := range []Member{leader, member} {
		m.LastSeen = now
		p.addLocked(m)
		r.byMember[m.UserID] = p.ID
	}
	r.parties[p.ID] = p
	snap := p.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("party created", zap.String("party", p.ID), zap.String("leader", leader.UserID))
	r.save(ctx, snap)
	return p, nil
}

// Join adds m to partyID.
//
// Postcondition: returns ErrFull at the size cap, ErrNotFound for an unknown
// party, or ErrAlreadyInParty.
func (r *Registry) Join(ctx context.Context, partyID string, m Member) error {
	r.mu.Lock()
	if _, ok := r.byMember[m.UserID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("joining %s: %w", partyID, ErrAlreadyInParty)
	}
	p, ok := r.parties[partyID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("joining %s: %w", partyID, ErrNotFound)
	}
	p.mu.Lock()
	if len(p.members) >= r.rules.MaxSize {
		p.mu.Unlock()
		r.mu.Unlock()
		return fmt.Errorf("joining %s: %w", partyID, ErrFull)
	}
	m.LastSeen = r.now()
	p.addLocked(m)
	snap := p.snapshotLocked()
	p.mu.Unlock()
	r.byMember[m.UserID] = partyID
	r.mu.Unlock()

	r.save(ctx, snap)
	return nil
}

// Leave removes userID from its party. The party is disbanded when the
// leader leaves or no member remains.
//
// Postcondition: disbanded reports whether the party was dissolved.
func (r *Registry) Leave(ctx context.Context, userID string) (disbanded bool, err error) {
	r.mu.Lock()
	pid, ok := r.byMember[userID]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("leaving party as %s: %w", userID, ErrNotFound)
	}
	p := r.parties[pid]
	p.mu.Lock()
	if p.Leader == userID || len(p.members) <= 1 {
		r.disbandLocked(p)
		p.mu.Unlock()
		r.mu.Unlock()
		r.logger.Info("party disbanded", zap.String("party", pid), zap.String("by", userID))
		r.delete(ctx, pid)
		return true, nil
	}
	p.removeLocked(userID)
	delete(r.byMember, userID)
	snap := p.snapshotLocked()
	p.mu.Unlock()
	r.mu.Unlock()

	r.save(ctx, snap)
	return false, nil
}

// Disband dissolves partyID.
func (r *Registry) Disband(ctx context.Context, partyID string) error {
	r.mu.Lock()
	p, ok := r.parties[partyID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("disbanding %s: %w", partyID, ErrNotFound)
	}
	p.mu.Lock()
	r.disbandLocked(p)
	p.mu.Unlock()
	r.mu.Unlock()

	r.delete(ctx, partyID)
	return nil
}

// disbandLocked requires r.mu and p.mu.
func (r *Registry) disbandLocked(p *Party) {
	for uid := range p.members {
		delete(r.byMember, uid)
	}
	delete(r.parties, p.ID)
	p.disbanded = true
}

// GetPartyOf returns the party userID belongs to.
func (r *Registry) GetPartyOf(userID string) (*Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.byMember[userID]
	if !ok {
		return nil, false
	}
	p, ok := r.parties[pid]
	return p, ok
}

// SetLevel records a member's new level and refreshes the weight cache.
func (r *Registry) SetLevel(ctx context.Context, userID string, level int) error {
	return r.updateMember(ctx, userID, func(m *Member) { m.Level = max(level, 1) })
}

// SetOnline records a member's connection state.
func (r *Registry) SetOnline(ctx context.Context, userID string, online bool) error {
	now := r.now()
	return r.updateMember(ctx, userID, func(m *Member) {
		m.Online = online
		m.LastSeen = now
	})
}

func (r *Registry) updateMember(ctx context.Context, userID string, fn func(*Member)) error {
	p, ok := r.GetPartyOf(userID)
	if !ok {
		return fmt.Errorf("updating %s: %w", userID, ErrNotFound)
	}
	p.mu.Lock()
	m, ok := p.members[userID]
	if !ok || p.disbanded {
		p.mu.Unlock()
		return fmt.Errorf("updating %s: %w", userID, ErrNotFound)
	}
	fn(m)
	p.recomputeLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	r.save(ctx, snap)
	return nil
}

func (r *Registry) save(ctx context.Context, s Snapshot) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveParty(ctx, s); err != nil {
		r.logger.Warn("saving party failed", zap.String("party", s.ID), zap.Error(err))
	}
}

func (r *Registry) delete(ctx context.Context, partyID string) {
	if r.store == nil {
		return
	}
	if err := r.store.DeleteParty(ctx, partyID); err != nil {
		r.logger.Warn("deleting party failed", zap.String("party", partyID), zap.Error(err))
	}
}
