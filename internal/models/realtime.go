package models

import "encoding/json"

// Server -> client event names.
const (
	EventNewMessage        = "new_message"
	EventMessageDeleted    = "message_deleted"
	EventMessageRead       = "message_read"
	EventChatCreated       = "chat_created"
	EventGroupLeft         = "group_left"
	EventGroupDeleted      = "group_deleted"
	EventIncomingCall      = "incoming_call"
	EventIncomingGroupCall = "incoming_group_call"
	EventError             = "error"
)

// Client -> server event names.
const (
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventMarkRead    = "mark_read"
	EventCallUser    = "call_user"
	EventGroupCall   = "group_call"
)

// Event is the frame written to a connection.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// InboundEvent is a frame read from a connection; Data is decoded per event name.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type MessageRef struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
}

type ReadReceipt struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	ReaderID  string `json:"readerId"`
}

type ChatRef struct {
	ChatID string `json:"chatId"`
}

type IncomingCall struct {
	From        string `json:"from"`
	ChannelName string `json:"channelName"`
	Type        string `json:"type"`
}

type IncomingGroupCall struct {
	From         string   `json:"from"`
	ChannelName  string   `json:"channelName"`
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
}

// ErrorPayload is sent to the single connection whose action failed.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SendMessageRequest is the payload of send_message.
type SendMessageRequest struct {
	ChatID           string  `json:"chatId" validate:"required,max=256"`
	Text             string  `json:"text" validate:"max=4096"`
	Type             string  `json:"type" validate:"omitempty,max=32"`
	MediaURL         *string `json:"mediaUrl" validate:"omitempty,max=2048"`
	ReplyToMessageID *string `json:"replyToMessageId" validate:"omitempty,max=64"`
}

// CallRequest is the payload of call_user.
type CallRequest struct {
	To          string `json:"to" validate:"required"`
	ChannelName string `json:"channelName" validate:"required,max=128"`
	Type        string `json:"type" validate:"required,max=32"`
}

// GroupCallRequest is the payload of group_call.
type GroupCallRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
	ChannelName  string   `json:"channelName" validate:"required,max=128"`
	Type         string   `json:"type" validate:"required,max=32"`
}
