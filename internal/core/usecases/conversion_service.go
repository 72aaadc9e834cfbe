package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/core/ports"
	"github.com/geowerks/specklegeo/internal/pkg/logging"
)

// Options are the pipeline defaults, passed into the constructor rather than
// read from ambient state.
type Options struct {
	// DefaultLimit caps emitted features when the caller supplies no limit.
	DefaultLimit int
	// MaxLimit is the hard ceiling a caller-supplied limit is clamped to.
	MaxLimit int
	// Prefetch bounds the traversal look-ahead over unexpanded references.
	// 0 disables look-ahead entirely.
	Prefetch int
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 10000
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100000
	}
	if o.Prefetch < 0 {
		o.Prefetch = 0
	}
	return o
}

// ConversionRequest is one parsed conversion call. Limit nil means "use the
// configured default".
type ConversionRequest struct {
	ModelURL string
	Limit    *int
	Anchor   AnchorParams
}

// ConversionService runs the fetch -> flatten -> georeference -> limit ->
// encode pipeline. One pipeline instance serves one request; concurrent
// requests share nothing but the (stateless) store client.
type ConversionService struct {
	store  ports.ObjectStore
	events ports.EventPublisher
	opts   Options
}

// NewConversionService creates a ConversionService. events may be nil when no
// broker is configured.
func NewConversionService(store ports.ObjectStore, events ports.EventPublisher, opts Options) *ConversionService {
	return &ConversionService{store: store, events: events, opts: opts.withDefaults()}
}

// ModelInfo resolves a model URL to its display metadata.
func (s *ConversionService) ModelInfo(ctx context.Context, modelURL string) (*domain.ModelInfo, error) {
	ref, err := domain.ParseModelURL(modelURL)
	if err != nil {
		return nil, err
	}
	return s.store.ResolveModel(ctx, ref)
}

// Convert runs the full pipeline for one request and returns the bounded,
// ordered feature collection. Request-fatal errors produce no partial output.
func (s *ConversionService) Convert(ctx context.Context, req ConversionRequest) (*domain.FeatureCollection, error) {
	started := time.Now()
	fc, err := s.convert(ctx, req)
	s.publishOutcome(ctx, req, fc, err, time.Since(started))
	return fc, err
}

func (s *ConversionService) convert(ctx context.Context, req ConversionRequest) (*domain.FeatureCollection, error) {
	ref, err := domain.ParseModelURL(req.ModelURL)
	if err != nil {
		return nil, err
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	transform, err := ResolveTransform(req.Anchor)
	if err != nil {
		return nil, err
	}

	info, err := s.store.ResolveModel(ctx, ref)
	if err != nil {
		return nil, err
	}
	root, err := s.store.Object(ctx, ref, info.RootObjectID)
	if err != nil {
		return nil, err
	}

	// walkCtx is cancelled the moment the limit is reached so outstanding
	// expansion work upstream is abandoned, not drained.
	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := newWalker(s.store, ref, s.opts.Prefetch)
	features := make([]domain.Feature, 0, min(limit, 256))
	skipped := 0
	logger := logging.FromCtx(ctx)

	err = w.walk(walkCtx, root, func(node *domain.Node) (bool, error) {
		geom, err := ExtractGeometry(node)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedGeometry) {
				// recovered locally: the node yields no feature but its
				// children may still bear geometry
				skipped++
				logger.Debug("skipping node without extractable geometry",
					"node", node.ID, "type", node.TypeTag())
				return true, nil
			}
			return false, err
		}

		transformed, err := geom.MapVertices(func(v domain.Vertex) (domain.Vertex, error) {
			x, y, z, err := transform.Apply(v.X, v.Y, v.Z)
			if err != nil {
				return domain.Vertex{}, fmt.Errorf("%w: %v", domain.ErrTransformFailure, err)
			}
			return domain.Vertex{X: x, Y: y, Z: z}, nil
		})
		if err != nil {
			return false, err
		}

		features = append(features, domain.NewFeature(node, len(features)+1, transformed))
		if len(features) >= limit {
			cancel()
			return false, errStopWalk
		}
		// geometry-bearing nodes are leaves: their children are detail, not
		// further features
		return false, nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}

	// receipt notification mirrors what desktop connectors send; advisory only
	if err := s.store.NotifyReceived(ctx, ref, info.VersionID); err != nil {
		logger.Warn("receipt notification failed", "model", ref.String(), "error", err)
	}

	logger.Info("model converted",
		"model", ref.String(),
		"features", len(features),
		"skipped", skipped,
		"limit", limit,
	)

	fc := &domain.FeatureCollection{
		Type:           "FeatureCollection",
		Project:        info.Project,
		Model:          info.Model,
		TargetCRS:      transform.CRSName(),
		NumberReturned: len(features),
		Features:       features,
	}
	if transform.CRSName() == "epsg:4326" {
		fc.CRS = domain.CRS84()
	}
	return fc, nil
}

func (s *ConversionService) resolveLimit(limit *int) (int, error) {
	if limit == nil {
		return s.opts.DefaultLimit, nil
	}
	if *limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidParameter, *limit)
	}
	if *limit > s.opts.MaxLimit {
		return s.opts.MaxLimit, nil
	}
	return *limit, nil
}

// publishOutcome emits a conversion event to the broker, if one is wired.
func (s *ConversionService) publishOutcome(ctx context.Context, req ConversionRequest, fc *domain.FeatureCollection, convErr error, elapsed time.Duration) {
	if s.events == nil {
		return
	}

	ev := &domain.ConversionEvent{
		ID:         uuid.NewString(),
		Model:      req.ModelURL,
		Status:     domain.ConversionCompleted,
		DurationMS: elapsed.Milliseconds(),
		Time:       time.Now().UTC(),
	}
	if convErr != nil {
		ev.Status = domain.ConversionFailed
		ev.Error = convErr.Error()
	} else if fc != nil {
		ev.Features = fc.NumberReturned
		ev.TargetCRS = fc.TargetCRS
	}

	if err := s.events.PublishConversion(ctx, ev); err != nil {
		logging.FromCtx(ctx).Warn("conversion event publish failed", "error", err)
	}
}
