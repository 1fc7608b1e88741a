package followers

import (
	"errors"
	"time"
)

var (
	ErrSelfFollow        = errors.New("cannot follow yourself")
	ErrUnknownUser       = errors.New("user does not exist")
	QueryTimeoutDuration = time.Second * 5
)

type Follower struct {
	UserID     int64  `json:"user_id"`
	FollowerID int64  `json:"follower_id"`
	CreatedAt  string `json:"created_at"`
}
