package api

type chatPayload struct {
	Text string `json:"text"`
}

type holdingPayload struct {
	Amount float64 `json:"amount"`
	Name   string  `json:"name"`
	CoinID string  `json:"coin_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// socketError is the frame sent when a chat message over the socket fails.
type socketError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}
