// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/models"
	"deepthoughts/internal/repository"
	"deepthoughts/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is given to every generated account.
const DefaultPassword = "password123"

// Options configures SeedRandom.
type Options struct {
	Users               int
	ThoughtsPerUser     int
	ReactionsPerThought int
	FriendsPerUser      int
	Password            string
	// Seed makes the generated content reproducible. Zero picks a random seed.
	Seed int64
}

// Summary counts what a seeding run created.
type Summary struct {
	Users       int
	Thoughts    int
	Reactions   int
	Friendships int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d thoughts, %d reactions, %d friendships",
		s.Users, s.Thoughts, s.Reactions, s.Friendships)
}

// Seeder writes demo data through the same Store the API uses, so seeded rows
// look exactly like rows created by real requests.
type Seeder struct {
	db     *gorm.DB
	store  repository.Store
	hasher auth.PasswordHasher
	logger *slog.Logger

	hashes map[string]string
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, hasher auth.PasswordHasher, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Seeder{
		db:     db,
		store:  repository.NewStore(db, nil),
		hasher: hasher,
		logger: logger,
		hashes: map[string]string{},
	}
}

// ClearAll removes every user, thought, reaction and friend edge.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Reaction{}, &models.UserFriend{}, &models.Thought{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	s.logger.InfoContext(ctx, "cleared existing data")
	return nil
}

// SeedRandom generates users with thoughts, reactions and friend edges.
func (s *Seeder) SeedRandom(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users <= 0 {
		return sum, nil
	}
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}

	seed := opts.Seed
	if seed == 0 {
		seed = gofakeit.Int64()
	}
	f := gofakeit.New(seed)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		username := fakeUsername(f, i)
		u, err := s.createUser(ctx, username, strings.ToLower(username)+"@example.com", password)
		if err != nil {
			return sum, err
		}
		users = append(users, u)
		sum.Users++
	}

	for _, u := range users {
		for j := 0; j < opts.ThoughtsPerUser; j++ {
			th, err := s.createThought(ctx, u, truncate(f.Sentence(f.IntRange(4, 16))))
			if err != nil {
				return sum, err
			}
			sum.Thoughts++

			for k := 0; k < opts.ReactionsPerThought; k++ {
				reactor := users[f.IntRange(0, len(users)-1)]
				if err := s.react(ctx, th.ID, reactor.Username, truncate(f.HipsterSentence(f.IntRange(2, 6)))); err != nil {
					return sum, err
				}
				sum.Reactions++
			}
		}
	}

	if len(users) > 1 {
		for i, u := range users {
			n := opts.FriendsPerUser
			if n > len(users)-1 {
				n = len(users) - 1
			}
			// Walk forward from a random offset so each pick is distinct and
			// never the user themselves.
			offset := f.IntRange(1, len(users)-1)
			for k := 0; k < n; k++ {
				friend := users[(i+offset+k)%len(users)]
				if friend.ID == u.ID {
					continue
				}
				if _, err := s.store.AddFriendEdge(ctx, u.ID, friend.ID); err != nil {
					return sum, fmt.Errorf("add friend %s -> %s: %w", u.Username, friend.Username, err)
				}
				sum.Friendships++
			}
		}
	}

	s.logger.InfoContext(ctx, "random seed applied", slog.String("summary", sum.String()))
	return sum, nil
}

func (s *Seeder) createUser(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, ok := s.hashes[password]
	if !ok {
		var err error
		if hash, err = s.hasher.Hash(password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		s.hashes[password] = hash
	}

	u := &models.User{Username: username, Email: validation.NormalizeEmail(email), Password: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return u, nil
}

func (s *Seeder) createThought(ctx context.Context, owner *models.User, text string) (*models.Thought, error) {
	th := &models.Thought{ThoughtText: text, Username: owner.Username}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.CreateThought(ctx, th); err != nil {
			return err
		}
		return tx.AppendThoughtRefToUser(ctx, owner.ID, th.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create thought for %s: %w", owner.Username, err)
	}
	return th, nil
}

func (s *Seeder) react(ctx context.Context, thoughtID uint, username, body string) error {
	_, err := s.store.AppendReactionToThought(ctx, thoughtID, models.Reaction{
		ReactionBody: body,
		Username:     username,
	})
	if err != nil {
		return fmt.Errorf("react to thought %d: %w", thoughtID, err)
	}
	return nil
}

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// fakeUsername derives a valid, unique username; the index suffix keeps
// collisions out of the unique index.
func fakeUsername(f *gofakeit.Faker, i int) string {
	base := usernameStrip.ReplaceAllString(f.Username(), "")
	if base == "" {
		base = "user"
	}
	suffix := fmt.Sprintf("_%d", i)
	if len(base)+len(suffix) > 30 {
		base = base[:30-len(suffix)]
	}
	return base + suffix
}

func truncate(text string) string {
	r := []rune(text)
	if len(r) > 280 {
		return string(r[:280])
	}
	return text
}
