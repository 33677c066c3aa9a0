package models

// Requests accepted by the HTTP API and the Kafka request topic.

type AnalyzeRequest struct {
	ContractDate string `query:"date" json:"contract_date" validate:"required"`
	Refresh      bool   `query:"refresh" json:"refresh"`
}

type ReportRequest struct {
	Date string `param:"date" validate:"required,len=8,numeric"` // YYYYMMDD
}

type SuppliersByTierRequest struct {
	Tier int `query:"tier" json:"tier" default:"3" validate:"oneof=1 2 3 4"`
}
