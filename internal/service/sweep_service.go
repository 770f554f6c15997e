package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/storage"
)

// SweepStore is the storage surface the orphan sweep needs.
type SweepStore interface {
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// SweepService removes creation objects that no row references. Originals of
// failed generations end up here, as do results whose ledger commit lost a race.
type SweepService struct {
	store     SweepStore
	creations *repository.CreationRepository
	grace     time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewSweepService(store SweepStore, creations *repository.CreationRepository, grace time.Duration, log *zap.Logger) *SweepService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepService{store: store, creations: creations, grace: grace, log: log, now: time.Now}
}

type SweepReport struct {
	Scanned    int
	Referenced int
	TooRecent  int
	Deleted    []string
}

// Run deletes unreferenced objects older than the grace period. The grace
// period keeps in-flight generations, whose row is not committed yet, safe.
func (s *SweepService) Run(ctx context.Context, dryRun bool) (*SweepReport, error) {
	objects, err := s.store.List(ctx, storage.CreationsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	report := &SweepReport{}
	for _, obj := range objects {
		report.Scanned++
		if obj.LastModified.After(cutoff) {
			report.TooRecent++
			continue
		}
		referenced, err := s.creations.IsKeyReferenced(ctx, obj.Key)
		if err != nil {
			return report, err
		}
		if referenced {
			report.Referenced++
			continue
		}
		if !dryRun {
			if err := s.store.Delete(ctx, obj.Key); err != nil {
				return report, fmt.Errorf("delete orphan: %w", err)
			}
		}
		report.Deleted = append(report.Deleted, obj.Key)
		s.log.Info("orphan removed", zap.String("key", obj.Key), zap.Bool("dry_run", dryRun))
	}
	return report, nil
}
