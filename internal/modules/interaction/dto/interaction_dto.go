package dto

// RecordInteractionRequest is the client-facing form. Vote and comment
// interactions are recorded by the server after the write commits.
type RecordInteractionRequest struct {
	Type string `json:"type" binding:"required,oneof=view"`
}

type InteractionResponse struct {
	Type     string `json:"type"`
	Recorded bool   `json:"recorded"`
}
