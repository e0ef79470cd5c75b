package constant

// Conversation types
const (
	ConversationTypePrivate int32 = 0
	ConversationTypeGroup   int32 = 1
)

// Request kinds
const (
	RequestKindFriend      int32 = 0
	RequestKindGroupJoin   int32 = 1
	RequestKindGroupInvite int32 = 2
)

// Request status
const (
	RequestStatusPending = "Pending"
	RequestStatusAccept  = "Accept"
	RequestStatusReject  = "Reject"
)

// Request roles reported in listings
const (
	RequestRoleSender   = "sender"
	RequestRoleReceiver = "receiver"
)

// Decisions accepted by the request ledger
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// SentinelUserId absorbs sender and master references of deleted users.
const SentinelUserId = "deleted_user"

// Field limits
const (
	MaxTagLength       = 20
	MaxGroupNameLength = 40
	MaxContentLength   = 4096
	MaxFetchLimit      = 200
)

// Conversation Id prefixes
const (
	PrivateConversationPrefix = "si_"
	GroupConversationPrefix   = "sg_"
)

// Redis key patterns (without prefix, use the getters below)
const (
	redisKeyToken   = "token:%s"    // token:{user_id}
	redisKeyOnline  = "online:%s"   // online:{user_id}
	redisKeyNotify  = "notify:%s"   // notify:{user_id}
	redisNotifyGlob = "notify:*"
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "chat:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

func RedisKeyToken() string            { return redisKeyPrefix + redisKeyToken }
func RedisKeyOnline() string           { return redisKeyPrefix + redisKeyOnline }
func RedisKeyNotify() string           { return redisKeyPrefix + redisKeyNotify }
func RedisNotifyPattern() string       { return redisKeyPrefix + redisNotifyGlob }
func RedisNotifyChannelPrefix() string { return redisKeyPrefix + "notify:" }
