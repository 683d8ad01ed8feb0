package protocol

import "encoding/json"

// Command types accepted from clients.
const (
	CmdUpdateUser    = "LobbyCtl.UPDATE_USER"
	CmdEnqueue       = "LobbyCtl.ENQUEUE"
	CmdPlaybackPlay  = "LobbyCtl.PLAYBACK_PLAY"
	CmdPlaybackPause = "LobbyCtl.PLAYBACK_PAUSE"
	CmdPlaybackSkip  = "LobbyCtl.PLAYBACK_SKIP"
	CmdVolumeUpdate  = "LobbyCtl.VOLUME_UPDATE"
	CmdBoardSubmit   = "ActionBoard.SUBMIT"
)

// Event types pushed to clients.
const (
	EvUserJoined     = "Event.USER_JOINED"
	EvUserLeft       = "Event.USER_LEFT"
	EvUserUpdated    = "Event.USER_UPDATED"
	EvLobbyUpdated   = "Event.LOBBY_UPDATED"
	EvQueueUpdated   = "Event.QUEUE_UPDATED"
	EvLibraryUpdated = "Event.LIBRARY_UPDATED"
	EvVolumeUpdated  = "Event.VOLUME_UPDATED"
	EvBoardUpdated   = "Event.BOARD_UPDATED"
	EvDataPush       = "LobbyCtl.DATA_PUSH"
	EvConnError      = "Connection.ERROR"

	TypeResponse = "LobbyCtl.RESPONSE"
)

type Status int

const (
	StatusOK           Status = 0
	StatusUnsupported  Status = -1
	StatusNotFound     Status = -2
	StatusRejected     Status = -5
	StatusHandlerError Status = -21
)

const (
	MsgRejected    = "Action rejected"
	MsgUnsupported = "Not supported"
	MsgConnError   = "Failed to handle message received because error was thrown"
)

// NoCorrelation is echoed when a command carried no id.
var NoCorrelation = json.RawMessage("-1")

// Inbound is the client command envelope.
type Inbound struct {
	Type  string          `json:"type"`
	ID    json.RawMessage `json:"id,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Response answers exactly one Inbound.
type Response struct {
	ID      json.RawMessage `json:"id"`
	Type    string          `json:"type"`
	Status  Status          `json:"status"`
	Message string          `json:"message"`
}

// Event is a push message; ClientID is the receiving member.
type Event struct {
	Type     string `json:"type"`
	Data     any    `json:"data"`
	ClientID int    `json:"clientId"`
}

type UpdateUserValue struct {
	ID          json.Number `json:"id"`
	Name        *string     `json:"name,omitempty"`
	Permissions *uint32     `json:"permissions,omitempty"`
}

type EnqueueValue struct {
	ID int `json:"id"`
}

type VolumeValue struct {
	Level *float64 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

type BoardSubmitValue struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// BoardUpdate is the data of Event.BOARD_UPDATED.
type BoardUpdate struct {
	Data any `json:"data"`
}
