package config

import "time"

const (
	// Messages
	MessageHistoryLimit = 100
	MaxMessageTextLen   = 4096
	DefaultMessageType  = "text"

	// Chats
	ChatCreatedSummary = "Chat created"
	GroupIDPrefix      = "group_"
	MaxGroupNameLen    = 128

	// Auth
	OTPDigits         = 4
	MinPasswordLength = 6
	GuestPhone        = "1111111111"
	GuestCode         = "0000"
	GuestDisplayName  = "Guest"

	// WebSocket
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBufferSize  = 256
	WSMaxMessageSize  = 64 * 1024
	WSWriteWait       = 10 * time.Second
	WSPongWait        = 60 * time.Second
	WSPingPeriod      = (WSPongWait * 9) / 10
)
