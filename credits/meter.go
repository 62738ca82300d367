package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/metrics"
	"github.com/poiesic/brandmem/storage"
)

// Meter gates metered operations on the credit ledger.
type Meter struct {
	repo      storage.CreditRepository
	allowance int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Meter.
type Option func(*Meter) error

// WithAllowance sets the balance provisioned on first read.
// Default is core.DefaultCreditAllowance.
func WithAllowance(n int) Option {
	return func(m *Meter) error {
		if n < 0 {
			return fmt.Errorf("allowance must not be negative, got %d", n)
		}
		m.allowance = n
		return nil
	}
}

// WithMetrics counts consumed and denied credits.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Meter) error {
		m.metrics = mt
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Meter) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewMeter creates a meter over repo.
func NewMeter(repo storage.CreditRepository, opts ...Option) (*Meter, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	m := &Meter{
		repo:      repo,
		allowance: core.DefaultCreditAllowance,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "credits")
	return m, nil
}

// Allowance returns the balance provisioned on first read.
func (m *Meter) Allowance() int {
	return m.allowance
}

// Check returns the remaining balance, provisioning the allowance on first read.
func (m *Meter) Check(ctx context.Context, tenantID uuid.UUID, capability core.Capability) (int, error) {
	if err := validate(tenantID, capability); err != nil {
		return 0, err
	}
	balance, err := m.repo.GetOrProvision(ctx, tenantID, capability, m.allowance)
	if err != nil {
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	return balance.Remaining, nil
}

// Require returns the remaining balance, or an error wrapping
// core.ErrInsufficientCredits when it is zero. Nothing is consumed.
func (m *Meter) Require(ctx context.Context, tenantID uuid.UUID, capability core.Capability) (int, error) {
	remaining, err := m.Check(ctx, tenantID, capability)
	if err != nil {
		return 0, err
	}
	if remaining <= 0 {
		m.metrics.CreditDenied(string(capability))
		m.logger.Info("credits exhausted", "tenant", tenantID, "capability", capability)
		return 0, fmt.Errorf("%w: %s", core.ErrInsufficientCredits, capability)
	}
	return remaining, nil
}

// Consume takes one credit and returns the new balance. When the balance is
// already zero it returns an error wrapping core.ErrInsufficientCredits and
// the balance is unchanged.
func (m *Meter) Consume(ctx context.Context, tenantID uuid.UUID, capability core.Capability) (int, error) {
	if err := validate(tenantID, capability); err != nil {
		return 0, err
	}

	balance, err := m.repo.Decrement(ctx, tenantID, capability, m.allowance)
	if errors.Is(err, core.ErrInsufficientCredits) {
		m.metrics.CreditDenied(string(capability))
		m.logger.Info("credit denied", "tenant", tenantID, "capability", capability)
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume credit: %w", err)
	}

	m.metrics.CreditConsumed(string(capability))
	m.logger.Debug("credit consumed", "tenant", tenantID, "capability", capability, "remaining", balance.Remaining)
	return balance.Remaining, nil
}

// Grant overwrites the balance, for top-ups and administration.
func (m *Meter) Grant(ctx context.Context, tenantID uuid.UUID, capability core.Capability, remaining int) (int, error) {
	if err := validate(tenantID, capability); err != nil {
		return 0, err
	}
	balance, err := m.repo.SetCredits(ctx, tenantID, capability, remaining)
	if err != nil {
		return 0, fmt.Errorf("failed to set credits: %w", err)
	}
	m.logger.Info("credits granted", "tenant", tenantID, "capability", capability, "remaining", balance.Remaining)
	return balance.Remaining, nil
}

// Balances returns the remaining balance of every capability.
func (m *Meter) Balances(ctx context.Context, tenantID uuid.UUID) (map[core.Capability]int, error) {
	out := make(map[core.Capability]int, len(core.Capabilities))
	for _, capability := range core.Capabilities {
		remaining, err := m.Check(ctx, tenantID, capability)
		if err != nil {
			return nil, err
		}
		out[capability] = remaining
	}
	return out, nil
}

func validate(tenantID uuid.UUID, capability core.Capability) error {
	if err := core.ValidateTenant(tenantID); err != nil {
		return err
	}
	if !slices.Contains(core.Capabilities, capability) {
		return fmt.Errorf("%w: %q", core.ErrInvalidCapability, capability)
	}
	return nil
}
