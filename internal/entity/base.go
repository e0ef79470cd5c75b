package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenPrivateConversationId generates the conversation Id shared by a user pair.
// Format: si_{min(a,b)}:{max(a,b)}, so both sides derive the same row.
func GenPrivateConversationId(userA, userB string) string {
	users := []string{userA, userB}
	sort.Strings(users)
	return fmt.Sprintf("%s%s:%s", constant.PrivateConversationPrefix, users[0], users[1])
}

// GenGroupConversationId generates conversation Id for a group or ad-hoc group chat
// Format: sg_{id}
func GenGroupConversationId(id string) string {
	return constant.GroupConversationPrefix + id
}

// PrivatePeers returns the two members encoded in a private conversation Id.
func PrivatePeers(conversationId string) (string, string, bool) {
	if !strings.HasPrefix(conversationId, constant.PrivateConversationPrefix) {
		return "", "", false
	}
	a, b, ok := strings.Cut(conversationId[len(constant.PrivateConversationPrefix):], ":")
	return a, b, ok
}
