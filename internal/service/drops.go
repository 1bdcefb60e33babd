package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/internal/cache"
	"ecoplate-api/internal/events"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/schedule"
	"ecoplate-api/pkg/uid"
)

// Drop input bounds.
const (
	MinBoxes = 1
	MaxBoxes = 100
	MinPrice = 1
	MaxPrice = 10
)

const dropListCacheKey = "drops:list"

// DropService is the inventory store: it creates drops and owns their box
// counters.
type DropService struct {
	d    Deps
	list *cache.Entry
	log  *zap.Logger
}

// NewDropService creates a drop service.
func NewDropService(d Deps) *DropService {
	d = d.withDefaults()
	s := &DropService{d: d, log: d.Log.Named("drops")}
	if d.Cache != nil {
		s.list = cache.NewEntry(d.Cache, dropListCacheKey, d.CacheTTL)
	}
	return s
}

func validateDrop(in *model.CreateDropInput) error {
	if !in.Location.Valid() {
		return validationf("location must be one of %v", model.Locations)
	}
	if in.Boxes < MinBoxes || in.Boxes > MaxBoxes {
		return validationf("boxes must be between %d and %d", MinBoxes, MaxBoxes)
	}
	if in.PriceMin < MinPrice || in.PriceMin > MaxPrice || in.PriceMax < MinPrice || in.PriceMax > MaxPrice {
		return validationf("prices must be between $%d and $%d", MinPrice, MaxPrice)
	}
	if in.PriceMin > in.PriceMax {
		return validationf("price_min must not exceed price_max")
	}
	if in.DailyCap < 0 {
		return validationf("daily_cap must not be negative")
	}
	if in.ConsecutiveWeeksAbove85 < 0 {
		return validationf("consecutive_weeks_above_85 must not be negative")
	}
	return nil
}

// CreateDrop validates and stores a new drop at full capacity.
func (s *DropService) CreateDrop(ctx context.Context, in model.CreateDropInput) (*model.Drop, error) {
	if err := validateDrop(&in); err != nil {
		return nil, err
	}

	now := s.d.Now()
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = schedule.Today(now, s.d.Location)
	}
	if _, err := schedule.Resolve(date, in.WindowStart, in.WindowEnd, s.d.Location); err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidDate):
			return nil, validationf("date must be YYYY-MM-DD")
		case errors.Is(err, schedule.ErrInvalidWindow):
			return nil, validationf("window_start must be before window_end")
		default:
			return nil, validationf("window times must be HH:MM")
		}
	}

	drop := &model.Drop{
		ID:             uid.New(),
		Location:       in.Location,
		LocationDetail: strings.TrimSpace(in.LocationDetail),
		Date:           date,
		WindowStart:    in.WindowStart,
		WindowEnd:      in.WindowEnd,
		TotalBoxes:     in.Boxes,
		RemainingBoxes: in.Boxes,
		ReservedBoxes:  0,
		PriceMin:       in.PriceMin,
		PriceMax:       in.PriceMax,
		Description:    strings.TrimSpace(in.Description),
		ImageRef:       strings.TrimSpace(in.ImageRef),
		CreatedAt:      now,
	}

	err := s.d.Store.WithTx(ctx, func(q repository.Querier) error {
		if err := q.InsertDrop(ctx, drop); err != nil {
			return err
		}
		if in.DailyCap > 0 || in.ConsecutiveWeeksAbove85 > 0 {
			if err := q.UpsertLocationCap(ctx, &model.LocationCap{
				Location:                in.Location,
				DailyCap:                in.DailyCap,
				ConsecutiveWeeksAbove85: in.ConsecutiveWeeksAbove85,
				UpdatedAt:               now,
			}); err != nil {
				return err
			}
		}
		return q.AddStats(ctx, schedule.Today(now, s.d.Location), model.StatsDelta{
			Drops:       1,
			BoxesPosted: int64(in.Boxes),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info("drop created",
		zap.String("drop_id", drop.ID),
		zap.String("location", string(drop.Location)),
		zap.Int("boxes", drop.TotalBoxes))
	publish(ctx, s.d, events.DropCreated, events.DropCreatedPayload{
		DropID:      drop.ID,
		Location:    string(drop.Location),
		Date:        drop.Date,
		WindowStart: drop.WindowStart,
		WindowEnd:   drop.WindowEnd,
		TotalBoxes:  drop.TotalBoxes,
	})

	return decorate(drop, now, s.d.Location), nil
}

// ListDrops returns every drop with its derived status and live price.
func (s *DropService) ListDrops(ctx context.Context) ([]*model.Drop, error) {
	var drops []*model.Drop

	if s.list == nil {
		list, err := s.d.Store.ListDrops(ctx)
		if err != nil {
			return nil, err
		}
		drops = list
	} else {
		raw, hit, err := s.list.Get(ctx, func() ([]byte, error) {
			list, err := s.d.Store.ListDrops(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(list)
		})
		if err != nil {
			return nil, err
		}
		s.d.Metrics.CacheLookup(hit)
		if err := json.Unmarshal(raw, &drops); err != nil {
			return nil, err
		}
	}

	now := s.d.Now()
	for _, d := range drops {
		decorate(d, now, s.d.Location)
	}
	return drops, nil
}

// GetDrop reads one drop straight from the store.
func (s *DropService) GetDrop(ctx context.Context, id string) (*model.Drop, error) {
	d, err := s.d.Store.GetDrop(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("drop")
		}
		return nil, err
	}
	return decorate(d, s.d.Now(), s.d.Location), nil
}

// DecrementAvailable takes one box inside q's transaction.
func (s *DropService) DecrementAvailable(ctx context.Context, q repository.Querier, dropID string) (*model.Drop, error) {
	ok, err := q.TakeBox(ctx, dropID)
	if err != nil {
		return nil, err
	}
	d, err := q.GetDrop(ctx, dropID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("drop")
		}
		return nil, err
	}
	if !ok {
		return nil, ErrSoldOut
	}
	return d, nil
}

// IncrementAvailable returns one box inside q's transaction.
func (s *DropService) IncrementAvailable(ctx context.Context, q repository.Querier, dropID string) (*model.Drop, error) {
	ok, err := q.ReturnBox(ctx, dropID)
	if err != nil {
		return nil, err
	}
	d, err := q.GetDrop(ctx, dropID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("drop")
		}
		return nil, err
	}
	if !ok {
		s.log.Warn("returned box to a drop with nothing reserved", zap.String("drop_id", dropID))
	}
	return d, nil
}

func (s *DropService) invalidate(ctx context.Context) {
	if s.list == nil {
		return
	}
	if err := s.list.Invalidate(ctx); err != nil {
		s.log.Warn("drop list cache not invalidated", zap.Error(err))
	}
}
