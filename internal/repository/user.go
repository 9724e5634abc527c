package repository

import (
	"context"
	"errors"
	"time"

	"deepthoughts/internal/cache"
	"deepthoughts/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errUserMissing = errors.New("user missing")

// friendRow is one edge of the friend list joined with the friend's public
// columns.
type friendRow struct {
	OwnerID   uint
	ID        uint
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// profiles loads users matching scope with thoughts, reactions and friends.
// The password column is never selected.
func (s *gormStore) profiles(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.User, error) {
	var users []models.User
	q := s.db.WithContext(ctx).
		Omit("password").
		Preload("Thoughts", byCreation).
		Preload("Thoughts.Reactions", byCreation)
	if err := scope(q).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.loadFriends(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *gormStore) loadFriends(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]uint, len(users))
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		ids[i] = users[i].ID
		users[i].Friends = []*models.User{}
		byID[users[i].ID] = &users[i]
	}

	var rows []friendRow
	err := s.db.WithContext(ctx).
		Table("user_friends AS uf").
		Select("uf.user_id AS owner_id, u.id, u.username, u.email, u.created_at, u.updated_at").
		Joins("JOIN users u ON u.id = uf.friend_id").
		Where("uf.user_id IN ?", ids).
		Order("uf.created_at ASC").
		Order("uf.friend_id ASC").
		Scan(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	for _, row := range rows {
		owner, ok := byID[row.OwnerID]
		if !ok {
			continue
		}
		owner.Friends = append(owner.Friends, &models.User{
			ID:        row.ID,
			Username:  row.Username,
			Email:     row.Email,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return nil
}

func (s *gormStore) FindUsers(ctx context.Context) (users []models.User, err error) {
	ctx, done := observe(ctx, "FindUsers", "users")
	defer done(&err)

	return s.profiles(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (s *gormStore) FindUserByID(ctx context.Context, id uint) (user *models.User, err error) {
	ctx, done := observe(ctx, "FindUserByID", "users")
	defer done(&err)

	var found models.User
	err = s.cache.Aside(ctx, cache.UserKey(id), &found, cache.UserTTL, func() error {
		users, err := s.profiles(ctx, func(db *gorm.DB) *gorm.DB {
			return db.Where("id = ?", id).Limit(1)
		})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return errUserMissing
		}
		found = users[0]
		return nil
	})
	if errors.Is(err, errUserMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (s *gormStore) FindUserByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := observe(ctx, "FindUserByUsername", "users")
	defer done(&err)

	id, ok := s.cache.LookupUserID(ctx, username)
	if !ok {
		var row models.User
		err := s.db.WithContext(ctx).Select("id").Where("username = ?", username).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		id = row.ID
		s.cache.RememberUserID(ctx, username, id)
	}
	return s.FindUserByID(ctx, id)
}

func (s *gormStore) FindUserCredentials(ctx context.Context, email string) (user *models.User, err error) {
	ctx, done := observe(ctx, "FindUserCredentials", "users")
	defer done(&err)

	var found models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &found, nil
}

func (s *gormStore) CreateUser(ctx context.Context, user *models.User) (err error) {
	ctx, done := observe(ctx, "CreateUser", "users")
	defer done(&err)

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return models.NewDuplicateKeyError("A user with that username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (s *gormStore) userExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (s *gormStore) AddFriendEdge(ctx context.Context, userID, friendID uint) (user *models.User, err error) {
	ctx, done := observe(ctx, "AddFriendEdge", "user_friends")
	defer done(&err)

	for _, id := range []uint{userID, friendID} {
		ok, err := s.userExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.NewNotFoundError("User", id)
		}
	}

	edge := models.UserFriend{UserID: userID, FriendID: friendID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	s.invalidateUser(ctx, userID)

	user, err = s.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	return user, nil
}

func (s *gormStore) AppendThoughtRefToUser(ctx context.Context, userID, thoughtID uint) (err error) {
	ctx, done := observe(ctx, "AppendThoughtRefToUser", "thoughts")
	defer done(&err)

	ok, err := s.userExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("User", userID)
	}

	res := s.db.WithContext(ctx).Model(&models.Thought{}).Where("id = ?", thoughtID).Update("user_id", userID)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Thought", thoughtID)
	}
	s.invalidateUser(ctx, userID)
	return nil
}
