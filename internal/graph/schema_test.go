package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"deepthoughts/internal/auth"
	"deepthoughts/internal/models"
	"deepthoughts/internal/repository"
	"deepthoughts/internal/service"
	"deepthoughts/internal/testutil"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "graph-test-secret-0123456789abcdef"

type harness struct {
	schema *graphql.Schema
	tokens *auth.TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SQLite(t)

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(testSecret)})
	require.NoError(t, err)

	return newHarnessWithStore(t, repository.NewStore(db, nil), tokens)
}

func newHarnessWithStore(t *testing.T, store repository.Store, tokens *auth.TokenService) *harness {
	t.Helper()
	svc := service.New(service.Deps{
		Store:  store,
		Tokens: tokens,
		Hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	})
	schema, err := NewSchema(svc, Options{MaxDepth: 6, MaxParallelism: 4})
	require.NoError(t, err)
	return &harness{schema: schema, tokens: tokens}
}

func (h *harness) exec(ctx context.Context, query string, vars map[string]interface{}) *graphql.Response {
	return h.schema.Exec(ctx, query, "", vars)
}

func (h *harness) as(token string) context.Context {
	ac := auth.NewContextResolver(h.tokens, nil).Resolve("Bearer " + token)
	return auth.WithContext(context.Background(), ac)
}

func decode(t *testing.T, resp *graphql.Response, dest interface{}) {
	t.Helper()
	require.Empty(t, resp.Errors)
	require.NoError(t, json.Unmarshal(resp.Data, dest))
}

func errorCode(t *testing.T, resp *graphql.Response) string {
	t.Helper()
	require.NotEmpty(t, resp.Errors)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

const signupMutation = `mutation($u: String!, $e: String!, $p: String!) {
  signup(username: $u, email: $e, password: $p) { token user { _id username email friendCount } }
}`

type signupData struct {
	Signup struct {
		Token string
		User  struct {
			ID          string `json:"_id"`
			Username    string
			Email       string
			FriendCount int
		}
	}
}

func (h *harness) signup(t *testing.T, username, email string) signupData {
	t.Helper()
	var out signupData
	decode(t, h.exec(context.Background(), signupMutation, map[string]interface{}{
		"u": username, "e": email, "p": "secret1",
	}), &out)
	return out
}

func TestSchemaParses(t *testing.T) {
	assert.Contains(t, SDL(), "type Mutation")
	newHarness(t)
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness(t)

	ana := h.signup(t, "ana", "a@x.com")
	assert.NotEmpty(t, ana.Signup.Token)
	assert.Equal(t, "ana", ana.Signup.User.Username)
	assert.Equal(t, 0, ana.Signup.User.FriendCount)

	resp := h.exec(context.Background(), `mutation { login(email: "a@x.com", password: "secret1") { token user { username } } }`, nil)
	var login struct {
		Login struct {
			Token string
			User  struct{ Username string }
		}
	}
	decode(t, resp, &login)
	assert.Equal(t, "ana", login.Login.User.Username)

	wrong := h.exec(context.Background(), `mutation { login(email: "a@x.com", password: "wrong") { token } }`, nil)
	missing := h.exec(context.Background(), `mutation { login(email: "nobody@x.com", password: "secret1") { token } }`, nil)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, wrong))
	assert.Equal(t, wrong.Errors[0].Message, missing.Errors[0].Message)

	dup := h.exec(context.Background(), signupMutation, map[string]interface{}{"u": "ana", "e": "z@x.com", "p": "secret1"})
	assert.Equal(t, "DUPLICATE_KEY", errorCode(t, dup))

	legacy := h.exec(context.Background(), `mutation { addUser(username: "bo", email: "b@x.com", password: "secret1") { user { username } } }`, nil)
	assert.Empty(t, legacy.Errors)
}

func TestPasswordIsNotQueryable(t *testing.T) {
	h := newHarness(t)
	resp := h.exec(context.Background(), `{ users { password } }`, nil)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, "password")
}

func TestGatedMutationsAnonymous(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := h.exec(ctx, `mutation { addThought(thoughtText: "x") { _id } }`, nil)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))
	assert.Equal(t, "You need to be logged in!", resp.Errors[0].Message)

	me := h.exec(ctx, `{ me { username } }`, nil)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, me))
	assert.Equal(t, "Not logged in", me.Errors[0].Message)

	var list struct {
		Thoughts []struct {
			ID string `json:"_id"`
		}
	}
	decode(t, h.exec(ctx, `{ thoughts { _id } }`, nil), &list)
	assert.Empty(t, list.Thoughts)
}

func TestThoughtReactionFriendFlow(t *testing.T) {
	h := newHarness(t)
	ana := h.signup(t, "ana", "a@x.com")
	bo := h.signup(t, "bo", "b@x.com")

	var added struct {
		AddThought struct {
			ID        string `json:"_id"`
			Username  string
			CreatedAt string
			Reactions []struct{ Username string }
		}
	}
	decode(t, h.exec(h.as(ana.Signup.Token),
		`mutation { addThought(thoughtText: "hello") { _id username createdAt reactions { username } } }`, nil), &added)
	assert.Equal(t, "ana", added.AddThought.Username)
	assert.NotEmpty(t, added.AddThought.CreatedAt)
	assert.True(t, strings.HasSuffix(added.AddThought.CreatedAt, "Z"))
	assert.Empty(t, added.AddThought.Reactions)

	var reacted struct {
		AddReaction struct {
			ReactionCount int
			Reactions     []struct {
				Username     string
				ReactionBody string
			}
		}
	}
	decode(t, h.exec(h.as(bo.Signup.Token),
		`mutation($id: ID!) { addReaction(thoughtId: $id, reactionBody: "nice!") { reactionCount reactions { username reactionBody } } }`,
		map[string]interface{}{"id": added.AddThought.ID}), &reacted)
	assert.Equal(t, 1, reacted.AddReaction.ReactionCount)
	assert.Equal(t, "bo", reacted.AddReaction.Reactions[0].Username)
	assert.Equal(t, "nice!", reacted.AddReaction.Reactions[0].ReactionBody)

	notFound := h.exec(h.as(bo.Signup.Token), `mutation { addReaction(thoughtId: "999", reactionBody: "x") { _id } }`, nil)
	assert.Equal(t, "NOT_FOUND", errorCode(t, notFound))

	for i := 0; i < 2; i++ {
		var friend struct {
			AddFriend struct {
				FriendCount int
				Friends     []struct{ Username string }
			}
		}
		decode(t, h.exec(h.as(bo.Signup.Token), `mutation($id: ID!) { addFriend(friendId: $id) { friendCount friends { username } } }`,
			map[string]interface{}{"id": ana.Signup.User.ID}), &friend)
		assert.Equal(t, 1, friend.AddFriend.FriendCount)
	}

	self := h.exec(h.as(bo.Signup.Token), `mutation($id: ID!) { addFriend(friendId: $id) { _id } }`,
		map[string]interface{}{"id": bo.Signup.User.ID})
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, self))

	// Friends resolve their own thoughts on demand.
	var profile struct {
		User struct {
			FriendCount int
			Friends     []struct {
				Username string
				Thoughts []struct{ ThoughtText string }
			}
		}
	}
	decode(t, h.exec(context.Background(), `{ user(username: "bo") { friendCount friends { username thoughts { thoughtText } } } }`, nil), &profile)
	require.Len(t, profile.User.Friends, 1)
	assert.Equal(t, "ana", profile.User.Friends[0].Username)
	require.Len(t, profile.User.Friends[0].Thoughts, 1)
	assert.Equal(t, "hello", profile.User.Friends[0].Thoughts[0].ThoughtText)

	var one struct {
		Thought *struct{ ThoughtText string }
		Missing *struct{ ThoughtText string }
	}
	decode(t, h.exec(context.Background(), `query($id: ID!) { thought(_id: $id) { thoughtText } missing: thought(_id: "404") { thoughtText } }`,
		map[string]interface{}{"id": added.AddThought.ID}), &one)
	require.NotNil(t, one.Thought)
	assert.Equal(t, "hello", one.Thought.ThoughtText)
	assert.Nil(t, one.Missing)

	var me struct{ Me struct{ Username string } }
	decode(t, h.exec(h.as(ana.Signup.Token), `{ me { username } }`, nil), &me)
	assert.Equal(t, "ana", me.Me.Username)
}

func TestThoughtsNewestFirstAndFiltered(t *testing.T) {
	h := newHarness(t)
	ana := h.signup(t, "ana", "a@x.com")
	bo := h.signup(t, "bo", "b@x.com")

	for _, post := range []struct{ token, text string }{
		{ana.Signup.Token, "one"},
		{bo.Signup.Token, "two"},
		{ana.Signup.Token, "three"},
	} {
		resp := h.exec(h.as(post.token), `mutation($t: String!) { addThought(thoughtText: $t) { _id } }`,
			map[string]interface{}{"t": post.text})
		require.Empty(t, resp.Errors)
	}

	var all struct {
		Thoughts []struct{ ThoughtText string }
	}
	decode(t, h.exec(context.Background(), `{ thoughts { thoughtText } }`, nil), &all)
	require.Len(t, all.Thoughts, 3)
	assert.Equal(t, "three", all.Thoughts[0].ThoughtText)

	var mine struct{ Thoughts []struct{ Username string } }
	decode(t, h.exec(context.Background(), `{ thoughts(username: "ana") { username } }`, nil), &mine)
	require.Len(t, mine.Thoughts, 2)
	for _, th := range mine.Thoughts {
		assert.Equal(t, "ana", th.Username)
	}
}

func TestReadOnlyRejectsMutations(t *testing.T) {
	h := newHarness(t)
	ctx := WithReadOnly(context.Background())

	resp := h.exec(ctx, signupMutation, map[string]interface{}{"u": "ana", "e": "a@x.com", "p": "secret1"})
	assert.Equal(t, models.CodeBadRequest, errorCode(t, resp))

	var users struct{ Users []struct{ Username string } }
	decode(t, h.exec(ctx, `{ users { username } }`, nil), &users)
	assert.Empty(t, users.Users)
}

func TestMaxDepth(t *testing.T) {
	h := newHarness(t)
	resp := h.exec(context.Background(),
		`{ users { friends { friends { friends { friends { friends { friends { username } } } } } } } }`, nil)
	require.NotEmpty(t, resp.Errors)
}

type failingStore struct {
	repository.Store
}

func (failingStore) FindUsers(context.Context) ([]models.User, error) {
	return nil, models.NewInternalError(errors.New("pq: connection refused to 10.0.0.5"))
}

func TestInternalErrorsAreMasked(t *testing.T) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte(testSecret)})
	require.NoError(t, err)
	h := newHarnessWithStore(t, failingStore{}, tokens)

	resp := h.exec(context.Background(), `{ users { username } }`, nil)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, resp))
	assert.Equal(t, "Internal server error", resp.Errors[0].Message)
	assert.NotContains(t, resp.Errors[0].Message, "10.0.0.5")
}
