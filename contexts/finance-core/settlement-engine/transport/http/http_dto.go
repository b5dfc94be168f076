package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PayoutDTO struct {
	PayoutID      string  `json:"payout_id"`
	CreatorID     string  `json:"creator_id"`
	CompanyID     string  `json:"company_id"`
	SubmissionID  string  `json:"submission_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	ExternalRef   string  `json:"external_ref,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	Version       int64   `json:"version"`
}

type PayoutResponse struct {
	Status string    `json:"status"`
	Data   PayoutDTO `json:"data"`
}

type ListPayoutsRequest struct {
	CreatorID string
	Status    string
	Limit     int
	Offset    int
}

type ListPayoutsResponse struct {
	Status string      `json:"status"`
	Total  int         `json:"total"`
	Data   []PayoutDTO `json:"data"`
}
