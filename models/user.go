package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/sales_backend/config"
	"github.com/mmdatafocus/sales_backend/utils"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	Roles     string    `gorm:"size:100;not null" json:"roles"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInfo struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

/*
caches:
	User:$username
*/

func userCacheKey(username string) string {
	return "User:" + username
}

func (user User) RoleList() []string {
	var roles []string
	for _, r := range strings.Split(user.Roles, ",") {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func Login(ctx context.Context, input *LoginInput) (*LoginInfo, error) {
	if fields := utils.ValidateStruct(input); fields != nil {
		return nil, NewValidationError(fields)
	}

	db := config.GetDB()
	user := User{}

	exists, err := config.GetRedisObject(userCacheKey(input.Username), &user)
	if err != nil {
		cacheWarning("Login", userCacheKey(input.Username), err)
		exists = false
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		if err := config.SetRedisObject(userCacheKey(user.Username), &user, utils.GetCacheLifespan()); err != nil {
			cacheWarning("Login", userCacheKey(user.Username), err)
		}
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, ErrInvalidCredentials
	}

	roles := user.RoleList()
	token, err := utils.JwtGenerate(user.ID, user.Username, roles)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{Token: token, Username: user.Username, Roles: roles}, nil
}

// SeedUser creates username with roles unless it already exists. Returns whether it was created.
func SeedUser(ctx context.Context, username string, password string, roles ...string) (*User, bool, error) {
	db := config.GetDB()

	var existing User
	err := db.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := User{
		Username: username,
		Password: string(hashed),
		Roles:    strings.Join(roles, ","),
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, false, &DuplicateError{Kind: KindUser, Field: "username", Value: username}
		}
		return nil, false, err
	}
	_ = config.RemoveRedisKey(userCacheKey(username))
	return &user, true, nil
}
