package tracking

import (
	"context"

	"sitelens/api/metrics"
	"sitelens/api/models"
)

// Service is the ingestion pipeline: normalise, then correlate and store.
type Service struct {
	normalizer *Normalizer
	correlator *Correlator
}

func NewService(n *Normalizer, c *Correlator) *Service {
	return &Service{normalizer: n, correlator: c}
}

func (s *Service) Track(ctx context.Context, req models.TrackRequest, meta RequestMeta) (models.TrackResult, error) {
	ev, err := s.normalizer.Normalize(ctx, req, meta)
	if err != nil {
		metrics.RecordRejected(string(models.KindOf(err)))
		return models.TrackResult{}, err
	}

	out, err := s.correlator.Track(ctx, ev)
	if err != nil {
		metrics.RecordRejected(string(models.KindOf(err)))
		return models.TrackResult{}, err
	}

	if ev.Type == models.PageViewExit {
		return models.TrackResult{Message: "Exit tracked successfully"}, nil
	}
	return models.TrackResult{
		Message:    "Entry tracked successfully",
		PageViewID: out.PageViewID,
	}, nil
}
