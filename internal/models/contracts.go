package models

import "negotiation-dashboard/backend-go/internal/negotiation"

// REST backend resources

type Project struct {
	ProjectID   string   `json:"project_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Vendors     []Vendor `json:"vendors"`
}

type Vendor struct {
	VendorID     string `json:"vendor_id"`
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Company      string `json:"company"`
	ProjectID    string `json:"project_id"`
}

// ErrorResponse is the structured error body the REST backend returns.
type ErrorResponse struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Forecaster chat

type NegotiationContext struct {
	ProductName              string  `json:"productName,omitempty"`
	DealPhase                string  `json:"dealPhase,omitempty"`
	OverallDealHealthScore   int     `json:"overallDealHealthScore"`
	LatestQuotedPrice        float64 `json:"latestQuotedPrice"`
	BuyerTargetPrice         string  `json:"buyerTargetPrice,omitempty"`
	RemainingWiggleRoom      float64 `json:"remainingWiggleRoom"`
	StalemateRiskProbability float64 `json:"stalemateRiskProbability"`
	SellerUrgencyScore       int     `json:"sellerUrgencyScore"`
	BuyerPowerIndex          int     `json:"buyerPowerIndex"`
	RecommendedStrategy      string  `json:"recommendedStrategy,omitempty"`
	Summary                  string  `json:"summary,omitempty"`
}

// NewNegotiationContext picks the fields the forecaster uses out of
// normalized metadata.
func NewNegotiationContext(m negotiation.Metadata) *NegotiationContext {
	return &NegotiationContext{
		ProductName:              m.ProductName,
		DealPhase:                m.DealPhase,
		OverallDealHealthScore:   m.OverallDealHealthScore,
		LatestQuotedPrice:        m.LatestQuotedPrice,
		BuyerTargetPrice:         m.BuyerTargetPrice,
		RemainingWiggleRoom:      m.RemainingWiggleRoom,
		StalemateRiskProbability: m.StalemateRiskProbability,
		SellerUrgencyScore:       m.SellerUrgencyScore,
		BuyerPowerIndex:          m.BuyerPowerIndex,
		RecommendedStrategy:      m.RecommendedStrategy,
		Summary:                  m.Summary,
	}
}

type ForecasterRequest struct {
	VendorID           string              `json:"vendor_id"`
	Message            string              `json:"message"`
	NegotiationContext *NegotiationContext `json:"negotiationContext,omitempty"`
}

type ForecasterResponse struct {
	ID          string   `json:"id"`
	VendorID    string   `json:"vendorId"`
	Message     string   `json:"message"`
	Response    string   `json:"response"`
	Timestamp   string   `json:"timestamp"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Responses served to the dashboard

type StatisticsMeta struct {
	Source    string            `json:"source"`
	Stale     bool              `json:"stale"`
	Error     string            `json:"error,omitempty"`
	FetchedAt string            `json:"fetchedAt,omitempty"`
	Shape     negotiation.Shape `json:"shape,omitempty"`
}

type StatisticsResponse struct {
	VendorID string               `json:"vendorId"`
	Data     negotiation.Metadata `json:"data"`
	Meta     StatisticsMeta       `json:"meta"`
}

type StatisticsListResponse struct {
	Items []negotiation.VendorMetadata `json:"items"`
	Count int                          `json:"count"`
}

type ComparisonResponse struct {
	negotiation.Comparison
	Missing []string `json:"missing"`
}

type HealthResponse struct {
	Ok          bool                 `json:"ok"`
	TsISO       string               `json:"tsISO"`
	Service     string               `json:"service"`
	Version     string               `json:"version,omitempty"`
	Deps        []string             `json:"deps"`
	DepsStatus  map[string]DepStatus `json:"deps_status,omitempty"`
	DataMissing []string             `json:"data_missing"`
	Cache       string               `json:"cache"`
	Env         map[string]bool      `json:"env"`
}

type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
