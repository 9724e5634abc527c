package service

import (
	"context"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/events"
	"deepthoughts/internal/models"
	"deepthoughts/internal/repository"
	"deepthoughts/internal/validation"
)

// AddThought posts a thought as the caller and links it to their profile in
// one transaction.
func (s *Service) AddThought(ctx context.Context, text string) (thought *models.Thought, err error) {
	ctx, done := instrument(ctx, "addThought")
	defer done(&err)

	return gated(ctx, "addThought", func(id auth.Identity) (*models.Thought, error) {
		if err := validation.ValidateText("thoughtText", text); err != nil {
			return nil, models.NewValidationError(err.Error())
		}

		th := &models.Thought{ThoughtText: text, Username: id.Username}
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := tx.CreateThought(ctx, th); err != nil {
				return err
			}
			return tx.AppendThoughtRefToUser(ctx, id.UserID, th.ID)
		})
		if err != nil {
			return nil, err
		}

		owner := id.UserID
		th.UserID = &owner
		s.publish(ctx, events.Event{
			Type:      events.ThoughtCreated,
			ActorID:   id.UserID,
			Actor:     id.Username,
			ThoughtID: th.ID,
			Text:      th.ThoughtText,
		})
		return th, nil
	})
}

// AddReaction appends a reaction by the caller to a thought.
func (s *Service) AddReaction(ctx context.Context, thoughtID, body string) (thought *models.Thought, err error) {
	ctx, done := instrument(ctx, "addReaction")
	defer done(&err)

	return gated(ctx, "addReaction", func(id auth.Identity) (*models.Thought, error) {
		if err := validation.ValidateText("reactionBody", body); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		tid, ok := parseID(thoughtID)
		if !ok {
			return nil, models.NewNotFoundError("Thought", thoughtID)
		}

		th, err := s.store.AppendReactionToThought(ctx, tid, models.Reaction{
			ReactionBody: body,
			Username:     id.Username,
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type:      events.ReactionCreated,
			ActorID:   id.UserID,
			Actor:     id.Username,
			ThoughtID: th.ID,
			Text:      body,
		})
		return th, nil
	})
}

// Thoughts lists thoughts newest first, optionally only those by username.
func (s *Service) Thoughts(ctx context.Context, username *string) (thoughts []models.Thought, err error) {
	ctx, done := instrument(ctx, "thoughts")
	defer done(&err)

	var filter repository.ThoughtFilter
	if username != nil {
		filter.Username = *username
	}
	return s.store.FindThoughts(ctx, filter, true)
}

// Thought returns one thought; nil when the id matches nothing.
func (s *Service) Thought(ctx context.Context, id string) (thought *models.Thought, err error) {
	ctx, done := instrument(ctx, "thought")
	defer done(&err)

	tid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return s.store.FindThoughtByID(ctx, tid)
}
