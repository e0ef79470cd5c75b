package entity

// FriendEdge is one direction of a friendship; edges always exist in mirrored pairs.
type FriendEdge struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	OwnerId   string `json:"owner_id" gorm:"column:owner_id;size:32;uniqueIndex:uk_friend_owner_friend,priority:1"`
	FriendId  string `json:"friend_id" gorm:"column:friend_id;size:32;uniqueIndex:uk_friend_owner_friend,priority:2;index:idx_friend_friend"`
	Tag       string `json:"tag" gorm:"column:tag;size:20"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for FriendEdge
func (FriendEdge) TableName() string {
	return "friends"
}

// FriendInfo is a friend as seen from the edge owner
type FriendInfo struct {
	UserId   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	Tag      string `json:"tag"`
}
