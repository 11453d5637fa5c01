package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"go.uber.org/zap"
)

// GenerateDirectory keeps every directory resource generated from now until
// now+horizon. Slots already present are skipped, so it is safe to run on a
// timer. One failing entry does not stop the others.
func (s *CatalogService) GenerateDirectory(ctx context.Context, entries []config.DirectoryEntry, horizon time.Duration) (GenerateResult, error) {
	now := s.clock.Now()
	var (
		total GenerateResult
		errs  []error
	)
	for _, e := range entries {
		res, err := s.GenerateSlots(ctx, GenerateSlotsInput{
			ResourceClass:      domain.ResourceClass(e.ResourceClass),
			ResourceIdentifier: e.ResourceIdentifier,
			ServiceTag:         e.ServiceTag,
			WindowStart:        now,
			WindowEnd:          now.Add(horizon),
			SlotDuration:       time.Duration(e.SlotMinutes) * time.Minute,
		})
		if err != nil {
			s.logger.Error("directory generation failed",
				zap.String("resource", e.ResourceIdentifier),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		total.Created += res.Created
		total.Skipped += res.Skipped
	}
	return total, errors.Join(errs...)
}
