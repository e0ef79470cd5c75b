package gateway

import "time"

// Frame identifiers
const (
	// Client requests
	WSGetOnline = 1001 // Query online state of users
	WSPing      = 1002 // Application-level keepalive

	// Server pushes
	WSPushEvent     = 2001 // Notification event
	WSKickOnlineMsg = 2002 // Connection closed by server
)

// Timeout constants
const (
	// WriteWait is time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// PongWait is time allowed to read the next pong message from the peer
	PongWait = 30 * time.Second

	// PingPeriod is period between pings. Must be less than PongWait
	PingPeriod = (PongWait * 9) / 10

	// OnlineTTL bounds how long a presence key survives without refresh
	OnlineTTL = 60 * time.Second

	// presenceRefresh must stay below OnlineTTL
	presenceRefresh = OnlineTTL / 2
)

// Query parameter keys
const (
	QueryToken = "token"
)

// MaxOnlineQuery caps the user ids accepted by one WSGetOnline request
const MaxOnlineQuery = 100
