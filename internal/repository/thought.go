package repository

import (
	"context"
	"errors"

	"deepthoughts/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *gormStore) FindThoughts(ctx context.Context, filter ThoughtFilter, newestFirst bool) (thoughts []models.Thought, err error) {
	ctx, done := observe(ctx, "FindThoughts", "thoughts")
	defer done(&err)

	q := s.db.WithContext(ctx).Preload("Reactions", byCreation)
	if filter.Username != "" {
		q = q.Where("username = ?", filter.Username)
	}
	if newestFirst {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = byCreation(q)
	}

	if err := q.Find(&thoughts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return thoughts, nil
}

func (s *gormStore) FindThoughtByID(ctx context.Context, id uint) (thought *models.Thought, err error) {
	ctx, done := observe(ctx, "FindThoughtByID", "thoughts")
	defer done(&err)

	return s.findThought(ctx, s.db, id)
}

func (s *gormStore) findThought(ctx context.Context, db *gorm.DB, id uint) (*models.Thought, error) {
	var found models.Thought
	err := db.WithContext(ctx).Preload("Reactions", byCreation).Where("id = ?", id).Take(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &found, nil
}

func (s *gormStore) CreateThought(ctx context.Context, thought *models.Thought) (err error) {
	ctx, done := observe(ctx, "CreateThought", "thoughts")
	defer done(&err)

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(thought).Error; err != nil {
		return models.NewInternalError(err)
	}
	if thought.Reactions == nil {
		thought.Reactions = []models.Reaction{}
	}
	return nil
}

// AppendReactionToThought inserts the reaction as its own row, so concurrent
// appends to one thought never overwrite each other.
func (s *gormStore) AppendReactionToThought(ctx context.Context, thoughtID uint, reaction models.Reaction) (thought *models.Thought, err error) {
	ctx, done := observe(ctx, "AppendReactionToThought", "reactions")
	defer done(&err)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Thought{}).Where("id = ?", thoughtID).Count(&n).Error; err != nil {
			return models.NewInternalError(err)
		}
		if n == 0 {
			return models.NewNotFoundError("Thought", thoughtID)
		}

		reaction.ID = 0
		reaction.ThoughtID = thoughtID
		if err := tx.Create(&reaction).Error; err != nil {
			return models.NewInternalError(err)
		}

		found, err := s.findThought(ctx, tx, thoughtID)
		if err != nil {
			return err
		}
		if found == nil {
			return models.NewNotFoundError("Thought", thoughtID)
		}
		thought = found
		return nil
	})
	if err != nil {
		return nil, internal(err)
	}

	// The author's cached profile embeds this thought's reactions.
	if thought.UserID != nil {
		s.invalidateUser(ctx, *thought.UserID)
	}
	return thought, nil
}
