package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// defaultSweepBatch bounds how many records of each kind one sweep step handles.
const defaultSweepBatch = 100

// Refresher is implemented by propagators whose provider state can change
// without a local action.
type Refresher interface {
	RefreshStates() []model.BadgeState
	Refresh(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error
}

const (
	sweepActionIssue   = "issue"
	sweepActionRevoke  = "revoke"
	sweepActionRefresh = "refresh"
)

var (
	sweepOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "badgehub",
		Subsystem: "sweeper",
		Name:      "operations_total",
		Help:      "Propagation retries by credential kind, action and outcome.",
	}, []string{"kind", "action", "outcome"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "badgehub",
		Subsystem: "sweeper",
		Name:      "duration_seconds",
		Help:      "Wall time of a full propagation sweep.",
		Buckets:   prometheus.DefBuckets,
	})
)

// SweepStats summarizes one sweep. Skipped counts listed records that had
// changed by the time the sweeper reached them.
type SweepStats struct {
	Attempted int
	Failed    int
	Skipped   int
}

// PropagationSweeper periodically retries provider propagation that Award and
// Revoke left incomplete, and refreshes provider states that may still move.
type PropagationSweeper struct {
	registry *IssuerRegistry
	interval time.Duration
	batch    int
}

// NewPropagationSweeper creates a sweeper over every propagating issuer in
// registry.
func NewPropagationSweeper(registry *IssuerRegistry, interval time.Duration) *PropagationSweeper {
	return &PropagationSweeper{registry: registry, interval: interval, batch: defaultSweepBatch}
}

// Start runs a sweep immediately and then on every interval until ctx is
// canceled.
func (s *PropagationSweeper) Start(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("propagation sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep makes one pass over every propagating issuer. Each record is handled
// independently; a failure is logged and counted and the pass continues.
func (s *PropagationSweeper) Sweep(ctx context.Context) SweepStats {
	start := time.Now()
	var stats SweepStats

	for _, issuer := range s.registry.Issuers() {
		if issuer.propagator == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		s.sweepIssuer(ctx, issuer, &stats)
	}

	sweepDuration.Observe(time.Since(start).Seconds())
	slog.Info("propagation sweep complete",
		"attempted", stats.Attempted,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats
}

func (s *PropagationSweeper) sweepIssuer(ctx context.Context, issuer *BadgeIssuer, stats *SweepStats) {
	kind := issuer.Kind()
	templates := make(map[int64]*model.BadgeTemplate)

	unpropagated, err := issuer.credentials.ListUnpropagated(ctx, kind, s.batch)
	if err != nil {
		slog.Error("list unpropagated credentials failed", "kind", kind, "error", err)
	}
	for i := range unpropagated {
		s.apply(ctx, issuer, templates, unpropagated[i], sweepActionIssue, needsIssue, issuer.propagator.Issue, stats)
	}

	pending, err := issuer.credentials.ListPendingRevocation(ctx, kind, s.batch)
	if err != nil {
		slog.Error("list pending revocations failed", "kind", kind, "error", err)
	}
	for i := range pending {
		s.apply(ctx, issuer, templates, pending[i], sweepActionRevoke, needsRevoke, issuer.propagator.Revoke, stats)
	}

	refresher, ok := issuer.propagator.(Refresher)
	if !ok {
		return
	}
	for _, state := range refresher.RefreshStates() {
		stale, err := issuer.credentials.ListByState(ctx, kind, state, s.batch)
		if err != nil {
			slog.Error("list credentials by state failed", "kind", kind, "state", state, "error", err)
			continue
		}
		inState := func(c *model.UserCredential) bool { return c.Propagated() && c.State == state }
		for i := range stale {
			s.apply(ctx, issuer, templates, stale[i], sweepActionRefresh, inState, refresher.Refresh, stats)
		}
	}
}

// needsIssue matches awarded records no provider holds yet.
func needsIssue(c *model.UserCredential) bool {
	return c.Status == model.CredentialStatusAwarded && !c.Propagated() && !c.Revoked()
}

// needsRevoke matches revoked records whose provider badge is still live.
func needsRevoke(c *model.UserCredential) bool {
	return c.Status == model.CredentialStatusRevoked && c.Propagated() && !c.Revoked()
}

// apply runs step on the listed record under its credential lock. The record
// is read again once the lock is held and skipped unless it still matches.
func (s *PropagationSweeper) apply(
	ctx context.Context,
	issuer *BadgeIssuer,
	templates map[int64]*model.BadgeTemplate,
	listed model.UserCredential,
	action string,
	matches func(*model.UserCredential) bool,
	step func(context.Context, *model.UserCredential, model.BadgeTemplate) error,
	stats *SweepStats,
) {
	if ctx.Err() != nil {
		return
	}
	kind := string(issuer.Kind())

	unlock := issuer.locks.lock(listed.Username, listed.Credential.ID)
	defer unlock()

	cred, err := issuer.credentials.Get(ctx, listed.ID)
	if err != nil {
		stats.Attempted++
		stats.Failed++
		sweepOperations.WithLabelValues(kind, action, "error").Inc()
		slog.Error("sweep credential reload failed", "kind", kind, "credential_id", listed.ID, "error", err)
		return
	}
	if !matches(cred) {
		stats.Skipped++
		sweepOperations.WithLabelValues(kind, action, "skipped").Inc()
		slog.Debug("sweep skipped changed credential", "kind", kind, "action", action, "credential_id", cred.ID)
		return
	}
	stats.Attempted++

	tmpl, ok := templates[cred.Credential.ID]
	if !ok {
		tmpl, err = issuer.GetCredential(ctx, cred.Credential.ID)
		if err != nil {
			stats.Failed++
			sweepOperations.WithLabelValues(kind, action, "error").Inc()
			slog.Error("sweep template lookup failed", "kind", kind, "template_id", cred.Credential.ID, "error", err)
			return
		}
		templates[cred.Credential.ID] = tmpl
	}

	if err := step(ctx, cred, *tmpl); err != nil {
		stats.Failed++
		sweepOperations.WithLabelValues(kind, action, "error").Inc()
		slog.Warn("sweep step failed",
			"kind", kind,
			"action", action,
			"credential_id", cred.ID,
			"username", cred.Username,
			"error", err,
		)
		return
	}

	sweepOperations.WithLabelValues(kind, action, "success").Inc()
	slog.Debug("sweep step succeeded", "kind", kind, "action", action, "credential_id", cred.ID, "state", cred.State)
}
