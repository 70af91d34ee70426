package party

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/leveling"
)

// Crediter applies experience to a single player.
type Crediter interface {
	CreditExperience(ctx context.Context, userID string, amount int) (leveling.Result, error)
}

// Presence answers where a player is and whether they are alive.
type Presence interface {
	Position(userID string) (combat.Position, bool)
	Alive(ctx context.Context, userID string) bool
}

// Distributor splits experience across party members.
type Distributor struct {
	registry *Registry
	credit   Crediter
	presence Presence
	logger   *zap.Logger
}

// NewDistributor creates a Distributor.
//
// Precondition: all arguments must be non-nil.
func NewDistributor(registry *Registry, credit Crediter, presence Presence, logger *zap.Logger) *Distributor {
	return &Distributor{registry: registry, credit: credit, presence: presence, logger: logger}
}

// Distribute splits totalExp among the members of p who are online, alive,
// on mapID, and within MaxExpDistance of (x, y).
//
// Postcondition: the result holds one floor share per eligible member and
// sums to at most totalExp. The remainder is added to the party's
// undistributed counter.
func (d *Distributor) Distribute(ctx context.Context, totalExp, mapID, x, y int, p *Party) map[string]int {
	rules := d.registry.Rules()
	center := combat.Position{MapID: mapID, X: x, Y: y}

	p.mu.Lock()
	if p.disbanded || totalExp <= 0 {
		p.mu.Unlock()
		return map[string]int{}
	}
	candidates := p.snapshotLocked().Members
	p.mu.Unlock()

	eligible := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		if d.eligible(ctx, m, center, rules.MaxExpDistance) {
			eligible[m.UserID] = true
		}
	}

	shares := make(map[string]int, len(eligible))
	p.mu.Lock()
	if p.disbanded {
		p.mu.Unlock()
		return shares
	}
	denom := p.weightSum
	sum := 0
	for uid := range eligible {
		m, ok := p.members[uid]
		if !ok || denom <= 0 {
			continue
		}
		share := int(math.Floor(float64(totalExp) * p.Weight(m.Level) / denom))
		if share <= 0 {
			continue
		}
		shares[uid] = share
		sum += share
		m.Earned += share
		if rules.Mode == ModePooled {
			m.Pooled += share
		}
	}
	p.totalExpEarned += sum
	p.undistributedExp += totalExp - sum
	snap := p.snapshotLocked()
	p.mu.Unlock()

	d.registry.save(ctx, snap)

	if rules.Mode == ModeImmediate {
		for uid, share := range shares {
			d.apply(ctx, uid, share)
		}
	}
	d.logger.Debug("party experience distributed",
		zap.String("party", p.ID),
		zap.Int("total", totalExp),
		zap.Int("distributed", sum),
		zap.Int("recipients", len(shares)))
	return shares
}

// WithdrawPooled credits and clears userID's pooled experience.
//
// Postcondition: on a credit failure the pool is restored.
func (d *Distributor) WithdrawPooled(ctx context.Context, userID string) (int, error) {
	p, ok := d.registry.GetPartyOf(userID)
	if !ok {
		return 0, fmt.Errorf("withdrawing for %s: %w", userID, ErrNotFound)
	}
	p.mu.Lock()
	m, ok := p.members[userID]
	if !ok {
		p.mu.Unlock()
		return 0, fmt.Errorf("withdrawing for %s: %w", userID, ErrNotFound)
	}
	amount := m.Pooled
	m.Pooled = 0
	p.mu.Unlock()

	if amount == 0 {
		return 0, nil
	}
	res, err := d.credit.CreditExperience(ctx, userID, amount)
	if err != nil {
		p.mu.Lock()
		if m, ok := p.members[userID]; ok {
			m.Pooled += amount
		}
		p.mu.Unlock()
		return 0, fmt.Errorf("withdrawing for %s: %w", userID, err)
	}
	d.syncLevel(ctx, userID, res)
	d.registry.save(ctx, p.Snapshot())
	return amount, nil
}

func (d *Distributor) apply(ctx context.Context, userID string, share int) {
	res, err := d.credit.CreditExperience(ctx, userID, share)
	if err != nil {
		d.logger.Warn("crediting party share failed",
			zap.String("user", userID), zap.Int("share", share), zap.Error(err))
		return
	}
	d.syncLevel(ctx, userID, res)
}

func (d *Distributor) syncLevel(ctx context.Context, userID string, res leveling.Result) {
	if !res.LeveledUp() {
		return
	}
	if err := d.registry.SetLevel(ctx, userID, res.NewLevel); err != nil {
		d.logger.Debug("party level sync skipped", zap.String("user", userID), zap.Error(err))
	}
}

func (d *Distributor) eligible(ctx context.Context, m Member, center combat.Position, maxDist float64) bool {
	if !m.Online {
		return false
	}
	pos, ok := d.presence.Position(m.UserID)
	if !ok || pos.MapID != center.MapID {
		return false
	}
	if combat.EuclideanDistance(pos, center) > maxDist {
		return false
	}
	return d.presence.Alive(ctx, m.UserID)
}
