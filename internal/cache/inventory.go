package cache

import (
	"fmt"
	"time"
)

const (
	FeedSnapshotKey    = "feed:snapshot"
	PostsListKey       = "posts:list"
	UserUploadsPrefix  = "user:%s:uploads"
	SessionTokenPrefix = "session:%s"
)

const (
	PostsListTTL   = 30 * time.Second
	UserUploadsTTL = time.Minute
)

func UserUploadsKey(userID string) string {
	return fmt.Sprintf(UserUploadsPrefix, userID)
}

func SessionKey(profile string) string {
	return fmt.Sprintf(SessionTokenPrefix, profile)
}
