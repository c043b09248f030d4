package models

// FlowKind names the multi-step flow a chat is in the middle of.
type FlowKind string

const (
	FlowNone      FlowKind = ""
	FlowDiary     FlowKind = "waiting_diary"
	FlowSOS       FlowKind = "waiting_sos"
	FlowPayment   FlowKind = "waiting_payment"
	FlowBroadcast FlowKind = "waiting_broadcast"
)

func (k FlowKind) Valid() bool {
	switch k {
	case FlowNone, FlowDiary, FlowSOS, FlowPayment, FlowBroadcast:
		return true
	}
	return false
}

// ChatState is the single pending flow of a chat. Only the payload fields
// belonging to Kind are meaningful:
//
//	FlowSOS       ClientID, SosID
//	FlowPayment   ClientID
//	FlowDiary     ClientID
//	FlowBroadcast -
type ChatState struct {
	Kind     FlowKind `json:"kind"`
	ClientID int64    `json:"client_id,omitempty"`
	SosID    int64    `json:"sos_id,omitempty"`
}

func (s ChatState) IsNone() bool { return s.Kind == FlowNone }

func NoState() ChatState { return ChatState{} }

func DiaryState(clientID int64) ChatState {
	return ChatState{Kind: FlowDiary, ClientID: clientID}
}

func SOSState(clientID, sosID int64) ChatState {
	return ChatState{Kind: FlowSOS, ClientID: clientID, SosID: sosID}
}

func PaymentState(clientID int64) ChatState {
	return ChatState{Kind: FlowPayment, ClientID: clientID}
}

func BroadcastState() ChatState {
	return ChatState{Kind: FlowBroadcast}
}
