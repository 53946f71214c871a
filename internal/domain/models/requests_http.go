package models

// Requests for the signal HTTP endpoints. Defined in domain for consistency
// and reuse.

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type ConsensusRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type AnalyzeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	News   string `query:"news" json:"news" validate:"max=4000"`
}

type PositionRequest struct {
	Symbol   string  `json:"symbol" validate:"required"`
	Shares   float64 `json:"shares" validate:"gte=0"`
	AvgPrice float64 `json:"avg_price" validate:"gte=0"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
