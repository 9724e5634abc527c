package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"deepthoughts/internal/models"
	"deepthoughts/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written data set, usually loaded from YAML:
//
//	password: secret1
//	users:
//	  - username: ana
//	    email: ana@example.com
//	    friends: [bo]
//	    thoughts:
//	      - text: hello
//	        reactions:
//	          - username: bo
//	            body: nice
type Fixture struct {
	Password string        `yaml:"password"`
	Users    []FixtureUser `yaml:"users"`
}

// FixtureUser is one account in a Fixture.
type FixtureUser struct {
	Username string           `yaml:"username"`
	Email    string           `yaml:"email"`
	Password string           `yaml:"password"`
	Friends  []string         `yaml:"friends"`
	Thoughts []FixtureThought `yaml:"thoughts"`
}

// FixtureThought is a thought and its reactions, in order.
type FixtureThought struct {
	Text      string            `yaml:"text"`
	Reactions []FixtureReaction `yaml:"reactions"`
}

// FixtureReaction is a reaction left by Username.
type FixtureReaction struct {
	Username string `yaml:"username"`
	Body     string `yaml:"body"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate applies the same rules the API enforces and checks that every
// friend and reaction refers to a user declared in the fixture.
func (fx *Fixture) Validate() error {
	if len(fx.Users) == 0 {
		return errors.New("fixture declares no users")
	}

	known := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
		if err := validation.ValidateEmail(validation.NormalizeEmail(u.Email)); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
		if err := validation.ValidatePassword(fx.passwordFor(u)); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
		if known[u.Username] {
			return fmt.Errorf("user %q declared twice", u.Username)
		}
		known[u.Username] = true
	}

	for _, u := range fx.Users {
		for _, friend := range u.Friends {
			if !known[friend] {
				return fmt.Errorf("user %q: unknown friend %q", u.Username, friend)
			}
			if friend == u.Username {
				return fmt.Errorf("user %q cannot befriend themselves", u.Username)
			}
		}
		for _, th := range u.Thoughts {
			if err := validation.ValidateText("thoughtText", th.Text); err != nil {
				return fmt.Errorf("user %q: %w", u.Username, err)
			}
			for _, r := range th.Reactions {
				if !known[r.Username] {
					return fmt.Errorf("user %q: reaction by unknown user %q", u.Username, r.Username)
				}
				if err := validation.ValidateText("reactionBody", r.Body); err != nil {
					return fmt.Errorf("user %q: %w", u.Username, err)
				}
			}
		}
	}
	return nil
}

func (fx *Fixture) passwordFor(u FixtureUser) string {
	if u.Password != "" {
		return u.Password
	}
	if fx.Password != "" {
		return fx.Password
	}
	return DefaultPassword
}

// ApplyFixture creates every user first, then thoughts with their reactions,
// then friend edges, so references always resolve.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (Summary, error) {
	var sum Summary
	if err := fx.Validate(); err != nil {
		return sum, err
	}

	byName := make(map[string]*models.User, len(fx.Users))
	for _, fu := range fx.Users {
		u, err := s.createUser(ctx, fu.Username, fu.Email, fx.passwordFor(fu))
		if err != nil {
			return sum, err
		}
		byName[fu.Username] = u
		sum.Users++
	}

	for _, fu := range fx.Users {
		owner := byName[fu.Username]
		for _, ft := range fu.Thoughts {
			th, err := s.createThought(ctx, owner, ft.Text)
			if err != nil {
				return sum, err
			}
			sum.Thoughts++
			for _, fr := range ft.Reactions {
				if err := s.react(ctx, th.ID, fr.Username, fr.Body); err != nil {
					return sum, err
				}
				sum.Reactions++
			}
		}
	}

	for _, fu := range fx.Users {
		for _, friend := range fu.Friends {
			if _, err := s.store.AddFriendEdge(ctx, byName[fu.Username].ID, byName[friend].ID); err != nil {
				return sum, fmt.Errorf("add friend %s -> %s: %w", fu.Username, friend, err)
			}
			sum.Friendships++
		}
	}

	s.logger.InfoContext(ctx, "fixture applied", slog.String("summary", sum.String()))
	return sum, nil
}
