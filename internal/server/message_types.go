package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth         MessageType = "auth"
	MessageTypeJoinTable    MessageType = "join_table"
	MessageTypeLeaveTable   MessageType = "leave_table"
	MessageTypeSpectate     MessageType = "spectate"
	MessageTypeListTables   MessageType = "list_tables"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeVote         MessageType = "vote"

	// Server to client messages
	MessageTypeAuthResponse   MessageType = "auth_response"
	MessageTypeTableJoined    MessageType = "table_joined"
	MessageTypeTableLeft      MessageType = "table_left"
	MessageTypeTableList      MessageType = "table_list"
	MessageTypeTableState     MessageType = "table_state"
	MessageTypeActionRequired MessageType = "action_required"
	MessageTypeVoteRequired   MessageType = "vote_required"
	MessageTypeActionAccepted MessageType = "action_accepted"
	MessageTypeActionRejected MessageType = "action_rejected"
	MessageTypeHandResult     MessageType = "hand_result"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
