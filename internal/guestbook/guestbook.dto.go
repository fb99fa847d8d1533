package guestbook

type SubmitRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type SubmitResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type BatchApproveRequest struct {
	IDs []string `json:"ids"`
}

type BatchApproveResponse struct {
	Approved []string `json:"approved"`
}

// LiveMessage is pushed over the live listing websocket.
type LiveMessage struct {
	Action  string  `json:"action"`
	Entries []Entry `json:"entries,omitempty"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

const (
	LiveActionSnapshot = "snapshot"
	LiveActionError    = "error"
)

type ListResponse struct {
	Entries []Entry `json:"entries"`
}

type RejectResponse struct {
	Rejected string `json:"rejected"`
}
