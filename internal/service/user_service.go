package service

import (
	"context"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/events"
	"deepthoughts/internal/models"
	"deepthoughts/internal/validation"
)

// dummyPassword is hashed once and verified against when login finds no
// account, so both failure paths pay for a bcrypt comparison.
const dummyPassword = "deepthoughts-login-timing-equalizer"

// SignupInput carries the signup / addUser arguments.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates an account and returns a token for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (payload *AuthPayload, err error) {
	ctx, done := instrument(ctx, "signup")
	defer done(&err)

	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: in.Username, Email: email, Password: hash}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Sign(identityOf(user))
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user.Password = ""
	user.Friends = []*models.User{}
	user.Thoughts = []models.Thought{}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return &AuthPayload{Token: token, User: user}, nil
}

// Login exchanges credentials for a token. An unknown email and a wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (payload *AuthPayload, err error) {
	ctx, done := instrument(ctx, "login")
	defer done(&err)

	creds, err := s.store.FindUserCredentials(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if creds == nil {
		s.hasher.Verify(password, s.dummy())
		return nil, models.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, creds.Password) {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(identityOf(creds))
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user, err := s.store.FindUserByID(ctx, creds.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrInvalidCredentials
	}
	return &AuthPayload{Token: token, User: user}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context) (user *models.User, err error) {
	ctx, done := instrument(ctx, "me")
	defer done(&err)

	user, err = gated(ctx, "me", func(id auth.Identity) (*models.User, error) {
		u, err := s.store.FindUserByID(ctx, id.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, models.NewNotFoundError("User", id.UserID)
		}
		return u, nil
	})
	if isUnauthenticated(err) {
		return nil, models.NewUnauthenticatedError("Not logged in")
	}
	return user, err
}

// AddFriend adds friendID to the caller's friend set. The edge is
// one-directional and adding it again is a no-op.
func (s *Service) AddFriend(ctx context.Context, friendID string) (user *models.User, err error) {
	ctx, done := instrument(ctx, "addFriend")
	defer done(&err)

	return gated(ctx, "addFriend", func(id auth.Identity) (*models.User, error) {
		fid, ok := parseID(friendID)
		if !ok {
			return nil, models.NewNotFoundError("User", friendID)
		}
		if fid == id.UserID {
			return nil, models.NewValidationError("You cannot add yourself as a friend")
		}

		u, err := s.store.AddFriendEdge(ctx, id.UserID, fid)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type:     events.FriendAdded,
			ActorID:  id.UserID,
			Actor:    id.Username,
			FriendID: fid,
		})
		return u, nil
	})
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) (users []models.User, err error) {
	ctx, done := instrument(ctx, "users")
	defer done(&err)

	return s.store.FindUsers(ctx)
}

// User looks a user up by username; nil when there is none.
func (s *Service) User(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := instrument(ctx, "user")
	defer done(&err)

	return s.store.FindUserByUsername(ctx, username)
}

// UserByID loads a full profile; nil when there is none.
func (s *Service) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.store.FindUserByID(ctx, id)
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}
