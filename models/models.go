package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents API success response
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// QRCodeRequest represents QR code generation request
type QRCodeRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount,omitempty"`
}

// CampaignMetadata is the off-chain metadata a CID resolves to.
type CampaignMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
