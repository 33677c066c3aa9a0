package http

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"contract_date"`
	Message string         `json:"message,omitempty" example:"contract_date is required"`
	Params  map[string]any `json:"params,omitempty"`
}

type ListDataResponse struct {
	Rows  any   `json:"rows"`
	Total int64 `json:"total"`
}
