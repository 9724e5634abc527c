package graph

import (
	"context"
	"strconv"
	"sync"
	"time"

	"deepthoughts/internal/models"
	"deepthoughts/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
)

func toID(id uint) graphql.ID {
	return graphql.ID(strconv.FormatUint(uint64(id), 10))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type authResolver struct {
	root    *Resolver
	payload *service.AuthPayload
}

func (a *authResolver) Token() graphql.ID {
	return graphql.ID(a.payload.Token)
}

func (a *authResolver) User() *userResolver {
	return newUserResolver(a.root, a.payload.User, false)
}

// userResolver projects a User. Entries of a friend list carry only the
// friend's public columns; such shallow users load their full profile on
// first access to thoughts or friends.
type userResolver struct {
	root    *Resolver
	u       *models.User
	shallow bool

	once    sync.Once
	full    *models.User
	fullErr error
}

func newUserResolver(root *Resolver, u *models.User, shallow bool) *userResolver {
	return &userResolver{root: root, u: u, shallow: shallow}
}

func (r *userResolver) profile(ctx context.Context) (*models.User, error) {
	if !r.shallow {
		return r.u, nil
	}
	r.once.Do(func() {
		u, err := r.root.svc.UserByID(ctx, r.u.ID)
		if err != nil {
			r.fullErr = r.root.present(ctx, err)
			return
		}
		if u == nil {
			u = &models.User{ID: r.u.ID, Username: r.u.Username, Email: r.u.Email}
		}
		r.full = u
	})
	return r.full, r.fullErr
}

func (r *userResolver) ID() graphql.ID {
	return toID(r.u.ID)
}

func (r *userResolver) Username() string {
	return r.u.Username
}

func (r *userResolver) Email() string {
	return r.u.Email
}

func (r *userResolver) FriendCount(ctx context.Context) (int32, error) {
	u, err := r.profile(ctx)
	if err != nil {
		return 0, err
	}
	return int32(u.FriendCount()), nil
}

func (r *userResolver) Thoughts(ctx context.Context) ([]*thoughtResolver, error) {
	u, err := r.profile(ctx)
	if err != nil {
		return nil, err
	}
	return newThoughtResolvers(u.Thoughts), nil
}

func (r *userResolver) Friends(ctx context.Context) ([]*userResolver, error) {
	u, err := r.profile(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*userResolver, 0, len(u.Friends))
	for _, f := range u.Friends {
		if f == nil {
			continue
		}
		out = append(out, newUserResolver(r.root, f, true))
	}
	return out, nil
}

type thoughtResolver struct {
	t *models.Thought
}

func newThoughtResolvers(thoughts []models.Thought) []*thoughtResolver {
	out := make([]*thoughtResolver, len(thoughts))
	for i := range thoughts {
		out[i] = &thoughtResolver{t: &thoughts[i]}
	}
	return out
}

func (r *thoughtResolver) ID() graphql.ID {
	return toID(r.t.ID)
}

func (r *thoughtResolver) ThoughtText() string {
	return r.t.ThoughtText
}

func (r *thoughtResolver) CreatedAt() string {
	return formatTime(r.t.CreatedAt)
}

func (r *thoughtResolver) Username() string {
	return r.t.Username
}

func (r *thoughtResolver) ReactionCount() int32 {
	return int32(r.t.ReactionCount())
}

func (r *thoughtResolver) Reactions() []*reactionResolver {
	out := make([]*reactionResolver, len(r.t.Reactions))
	for i := range r.t.Reactions {
		out[i] = &reactionResolver{r: &r.t.Reactions[i]}
	}
	return out
}

type reactionResolver struct {
	r *models.Reaction
}

func (r *reactionResolver) ID() graphql.ID {
	return toID(r.r.ID)
}

func (r *reactionResolver) ReactionBody() string {
	return r.r.ReactionBody
}

func (r *reactionResolver) CreatedAt() string {
	return formatTime(r.r.CreatedAt)
}

func (r *reactionResolver) Username() string {
	return r.r.Username
}
