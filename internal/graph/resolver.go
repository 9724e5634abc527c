package graph

import (
	"context"
	"log/slog"

	"deepthoughts/internal/service"

	graphql "github.com/graph-gophers/graphql-go"
)

// Resolver is the root for both Query and Mutation fields.
type Resolver struct {
	svc    *service.Service
	logger *slog.Logger
}

// Queries

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	u, err := r.svc.Me(ctx)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return newUserResolver(r, u, false), nil
}

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	users, err := r.svc.Users(ctx)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	out := make([]*userResolver, len(users))
	for i := range users {
		out[i] = newUserResolver(r, &users[i], false)
	}
	return out, nil
}

func (r *Resolver) User(ctx context.Context, args struct{ Username string }) (*userResolver, error) {
	u, err := r.svc.User(ctx, args.Username)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	if u == nil {
		return nil, nil
	}
	return newUserResolver(r, u, false), nil
}

func (r *Resolver) Thoughts(ctx context.Context, args struct{ Username *string }) ([]*thoughtResolver, error) {
	thoughts, err := r.svc.Thoughts(ctx, args.Username)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return newThoughtResolvers(thoughts), nil
}

func (r *Resolver) Thought(ctx context.Context, args struct{ ID graphql.ID }) (*thoughtResolver, error) {
	th, err := r.svc.Thought(ctx, string(args.ID))
	if err != nil {
		return nil, r.present(ctx, err)
	}
	if th == nil {
		return nil, nil
	}
	return &thoughtResolver{t: th}, nil
}

// Mutations

type signupArgs struct {
	Username string
	Email    string
	Password string
}

func (r *Resolver) Signup(ctx context.Context, args signupArgs) (*authResolver, error) {
	if isReadOnly(ctx) {
		return nil, errReadOnly
	}
	payload, err := r.svc.Signup(ctx, service.SignupInput{
		Username: args.Username,
		Email:    args.Email,
		Password: args.Password,
	})
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return &authResolver{root: r, payload: payload}, nil
}

// AddUser is the original name of Signup, kept for existing clients.
func (r *Resolver) AddUser(ctx context.Context, args signupArgs) (*authResolver, error) {
	return r.Signup(ctx, args)
}

func (r *Resolver) Login(ctx context.Context, args struct {
	Email    string
	Password string
}) (*authResolver, error) {
	if isReadOnly(ctx) {
		return nil, errReadOnly
	}
	payload, err := r.svc.Login(ctx, args.Email, args.Password)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return &authResolver{root: r, payload: payload}, nil
}

func (r *Resolver) AddThought(ctx context.Context, args struct{ ThoughtText string }) (*thoughtResolver, error) {
	if isReadOnly(ctx) {
		return nil, errReadOnly
	}
	th, err := r.svc.AddThought(ctx, args.ThoughtText)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return &thoughtResolver{t: th}, nil
}

func (r *Resolver) AddReaction(ctx context.Context, args struct {
	ThoughtID    graphql.ID
	ReactionBody string
}) (*thoughtResolver, error) {
	if isReadOnly(ctx) {
		return nil, errReadOnly
	}
	th, err := r.svc.AddReaction(ctx, string(args.ThoughtID), args.ReactionBody)
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return &thoughtResolver{t: th}, nil
}

func (r *Resolver) AddFriend(ctx context.Context, args struct{ FriendID graphql.ID }) (*userResolver, error) {
	if isReadOnly(ctx) {
		return nil, errReadOnly
	}
	u, err := r.svc.AddFriend(ctx, string(args.FriendID))
	if err != nil {
		return nil, r.present(ctx, err)
	}
	return newUserResolver(r, u, false), nil
}
