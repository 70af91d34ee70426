// Package party tracks player groups and splits experience across their
// members by level weight.
package party

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrFull is returned when a party is at its member cap.
	ErrFull = errors.New("party is full")
	// ErrNotFound is returned when a party or membership does not exist.
	ErrNotFound = errors.New("party not found")
	// ErrAlreadyInParty is returned when a player already belongs to a party.
	ErrAlreadyInParty = errors.New("player already in a party")
)

// Mode selects how distributed shares reach members.
type Mode string

const (
	// ModeImmediate credits each share at distribution time.
	ModeImmediate Mode = "immediate"
	// ModePooled holds shares in the member pool until withdrawn.
	ModePooled Mode = "pooled"
)

// Rules configures party size and distribution.
type Rules struct {
	Exponent       float64
	MaxExpDistance float64
	MaxSize        int
	Mode           Mode
}

// DefaultRules returns the stock party rules.
func DefaultRules() Rules {
	return Rules{Exponent: 1.2, MaxExpDistance: 18, MaxSize: 8, Mode: ModeImmediate}
}

// Validate reports every field that is out of range.
func (r Rules) Validate() error {
	var errs []error
	if r.Exponent <= 0 {
		errs = append(errs, fmt.Errorf("exponent must be > 0, got %v", r.Exponent))
	}
	if r.MaxExpDistance < 0 {
		errs = append(errs, fmt.Errorf("max_exp_distance must be >= 0, got %v", r.MaxExpDistance))
	}
	if r.MaxSize < 2 {
		errs = append(errs, fmt.Errorf("max_size must be >= 2, got %d", r.MaxSize))
	}
	if r.Mode != ModeImmediate && r.Mode != ModePooled {
		errs = append(errs, fmt.Errorf("mode must be immediate or pooled, got %q", r.Mode))
	}
	return errors.Join(errs...)
}

// Member is one party member's state.
type Member struct {
	UserID   string
	Username string
	Level    int
	// Earned is every share this member has received.
	Earned int
	// Pooled is experience held for a later withdrawal.
	Pooled   int
	Online   bool
	LastSeen time.Time
}

// Snapshot is a point-in-time copy of a party.
type Snapshot struct {
	ID               string
	Leader           string
	Members          []Member
	TotalExpEarned   int
	UndistributedExp int
}

// Party is a group of members sharing experience.
//
// Invariant: weightSum equals the sum of Weight(level) over members.
type Party struct {
	ID     string
	Leader string

	mu               sync.Mutex
	exponent         float64
	members          map[string]*Member
	order            []string
	weightSum        float64
	totalExpEarned   int
	undistributedExp int
	disbanded        bool
}

func newParty(id string, exponent float64) *Party {
	return &Party{ID: id, exponent: exponent, members: make(map[string]*Member)}
}

// Weight returns level^exponent.
func (p *Party) Weight(level int) float64 {
	return math.Pow(float64(max(level, 1)), p.exponent)
}

// WeightSum returns the cached sum of member weights.
func (p *Party) WeightSum() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.weightSum
}

// Size returns the member count.
func (p *Party) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Has reports whether userID is a member.
func (p *Party) Has(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[userID]
	return ok
}

// Member returns a copy of one member.
func (p *Party) Member(userID string) (Member, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[userID]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// Disbanded reports whether the party has been dissolved.
func (p *Party) Disbanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disbanded
}

// Snapshot returns a copy of the party with members in join order.
func (p *Party) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Party) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:               p.ID,
		Leader:           p.Leader,
		Members:          make([]Member, 0, len(p.order)),
		TotalExpEarned:   p.totalExpEarned,
		UndistributedExp: p.undistributedExp,
	}
	for _, uid := range p.order {
		s.Members = append(s.Members, *p.members[uid])
	}
	return s
}

func (p *Party) addLocked(m Member) {
	m.Level = max(m.Level, 1)
	p.members[m.UserID] = &m
	p.order = append(p.order, m.UserID)
	p.recomputeLocked()
}

func (p *Party) removeLocked(userID string) {
	delete(p.members, userID)
	for i, uid := range p.order {
		if uid == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.recomputeLocked()
}

func (p *Party) recomputeLocked() {
	sum := 0.0
	for _, m := range p.members {
		sum += p.Weight(m.Level)
	}
	p.weightSum = sum
}
