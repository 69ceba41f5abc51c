package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Revocations remembers logged-out bearer tokens until they expire on their own.
type Revocations struct {
	repo repositories.IRevokedTokenRepository
	now  func() time.Time
}

func NewRevocations(repo repositories.IRevokedTokenRepository) *Revocations {
	return &Revocations{repo: repo, now: time.Now}
}

func tokenHash(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// Revoke stores the token until expiry. A token that has already expired is
// not stored since it no longer verifies anyway.
func (r *Revocations) Revoke(ctx context.Context, tokenString string, expiry time.Time) error {
	if !expiry.After(r.now()) {
		return nil
	}

	err := r.repo.Add(ctx, &models.RevokedToken{TokenHash: tokenHash(tokenString), ExpiresAt: expiry})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (r *Revocations) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	return r.repo.Exists(ctx, tokenHash(tokenString))
}

// PurgeExpired drops revocations whose token expired before now.
func (r *Revocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.repo.DeleteExpired(ctx, now)
}

// Sweeper runs PurgeExpired on a cron schedule.
type Sweeper struct {
	cron        *cron.Cron
	revocations *Revocations
}

// NewSweeper accepts standard cron expressions and descriptors like "@every 10m".
func NewSweeper(revocations *Revocations, schedule string) (*Sweeper, error) {
	s := &Sweeper{cron: cron.New(), revocations: revocations}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.revocations.PurgeExpired(ctx, s.revocations.now())
	if err != nil {
		logrus.Errorf("Failed to purge expired revocations: %v", err)
		return
	}
	if n > 0 {
		logrus.Infof("Purged %d expired token revocations", n)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
