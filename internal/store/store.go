package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bluewave-telemetry-backend/internal/filter"
	"bluewave-telemetry-backend/internal/model"
)

// ErrNotFound is returned when a referenced observation does not exist.
var ErrNotFound = errors.New("observation not found")

// Store defines the interface for observation persistence. The store is
// the sole owner of persisted rows; each write runs in one transaction
// with commit-or-rollback semantics.
type Store interface {
	DB() *gorm.DB
	InsertObservations(ctx context.Context, obs []model.Observation) ([]int64, error)
	GetObservation(ctx context.Context, id int64) (*model.Observation, error)
	QueryObservations(ctx context.Context, args map[string]string, page Page) ([]model.Observation, error)
	ReplaceObservation(ctx context.Context, id int64, fields model.Observation) (*model.Observation, error)
	PatchObservation(ctx context.Context, id int64, patch ObservationPatch) (*model.Observation, error)
	DeleteObservation(ctx context.Context, id int64) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for collaborators outside the
// observation core (buoy registry, health checks).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// InsertObservations persists a batch atomically and returns the assigned
// ids in input order. A failure anywhere rolls back the whole batch.
func (s *gormStore) InsertObservations(ctx context.Context, obs []model.Observation) ([]int64, error) {
	if len(obs) == 0 {
		return nil, nil
	}
	for i := range obs {
		obs[i].ObservedAt = obs[i].ObservedAt.UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&obs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("insert observations: %w", err)
	}

	ids := make([]int64, len(obs))
	for i, o := range obs {
		ids[i] = o.ID
	}
	return ids, nil
}

func (s *gormStore) GetObservation(ctx context.Context, id int64) (*model.Observation, error) {
	var o model.Observation
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get observation %d: %w", id, err)
	}
	return &o, nil
}

// QueryObservations narrows the collection by the recognized filter
// parameters in args, then pages in observed_at-descending order. Equal
// timestamps tie-break on id so pagination stays deterministic.
func (s *gormStore) QueryObservations(ctx context.Context, args map[string]string, page Page) ([]model.Observation, error) {
	q, err := filter.Observations(s.db.WithContext(ctx).Model(&model.Observation{}), args)
	if err != nil {
		return nil, err
	}

	var obs []model.Observation
	err = q.Order("observed_at DESC, id ASC").
		Offset((page.Number - 1) * page.PerPage).
		Limit(page.PerPage).
		Find(&obs).Error
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	return obs, nil
}

// mutable fields an update may touch; id and audit timestamps stay
// system-owned.
func assignFields(dst *model.Observation, src model.Observation) {
	dst.BuoyID = src.BuoyID
	dst.ObservedAt = src.ObservedAt.UTC()
	dst.Timezone = src.Timezone
	dst.Lat = src.Lat
	dst.Lon = src.Lon
	dst.TempC = src.TempC
	dst.Humidity = src.Humidity
	dst.WindMS = src.WindMS
	dst.PrecipitationMM = src.PrecipitationMM
	dst.Haze = src.Haze
	dst.Notes = src.Notes
}

// Apply copies the non-nil patch fields onto o.
func (p ObservationPatch) Apply(o *model.Observation) {
	if p.BuoyID != nil {
		o.BuoyID = *p.BuoyID
	}
	if p.ObservedAt != nil {
		o.ObservedAt = p.ObservedAt.UTC()
	}
	if p.Timezone != nil {
		o.Timezone = *p.Timezone
	}
	if p.Lat != nil {
		o.Lat = *p.Lat
	}
	if p.Lon != nil {
		o.Lon = *p.Lon
	}
	if p.TempC != nil {
		o.TempC = *p.TempC
	}
	if p.Humidity != nil {
		o.Humidity = *p.Humidity
	}
	if p.WindMS != nil {
		o.WindMS = *p.WindMS
	}
	if p.PrecipitationMM != nil {
		o.PrecipitationMM = *p.PrecipitationMM
	}
	if p.Haze != nil {
		o.Haze = *p.Haze
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
}

// ReplaceObservation overwrites all mutable fields of the record.
func (s *gormStore) ReplaceObservation(ctx context.Context, id int64, fields model.Observation) (*model.Observation, error) {
	return s.updateObservation(ctx, id, func(o *model.Observation) {
		assignFields(o, fields)
	})
}

// PatchObservation overwrites only the fields supplied in the patch.
func (s *gormStore) PatchObservation(ctx context.Context, id int64, patch ObservationPatch) (*model.Observation, error) {
	return s.updateObservation(ctx, id, patch.Apply)
}

func (s *gormStore) updateObservation(ctx context.Context, id int64, mutate func(*model.Observation)) (*model.Observation, error) {
	var o model.Observation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&o, id).Error; err != nil {
			return err
		}
		mutate(&o)
		return tx.Omit(clause.Associations).Save(&o).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update observation %d: %w", id, err)
	}
	return &o, nil
}

func (s *gormStore) DeleteObservation(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Observation
		if err := tx.First(&o, id).Error; err != nil {
			return err
		}
		return tx.Delete(&o).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete observation %d: %w", id, err)
	}
	return nil
}
