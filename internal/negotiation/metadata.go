// Package negotiation turns the analytics documents produced by the
// negotiation backend into a canonical, fully populated Metadata record.
package negotiation

// Strategy is one candidate negotiation tactic suggested by the analytics backend.
type Strategy struct {
	StrategyName           string   `json:"strategyName"`
	ToneToAdopt            string   `json:"toneToAdopt"`
	RecommendedBullets     []string `json:"recommendedBullets"`
	CounterOfferAmount     float64  `json:"counterOfferAmount"`
	PsychologicalMechanism string   `json:"psychologicalMechanism"`
	WhyThisWorks           string   `json:"whyThisWorks"`
	SuccessProbability     float64  `json:"successProbability"`
}

// Metadata aggregates everything the dashboard can show about one vendor
// negotiation thread. Every field is always populated by Normalize.
//
// Integer scores are rounded half away from zero (7.5 becomes 8) and
// saturate at the bounds of int, so an upstream 1e300 reads as math.MaxInt.
// Non-numeric input falls back to the field's default.
type Metadata struct {
	// Commercial context
	ProductName    string `json:"productName"`
	Quantities     string `json:"quantities"`
	DealTermMonths *int   `json:"dealTermMonths"`

	// Sentiment
	CurrentSentiment         string `json:"currentSentiment"`
	SentimentTrajectory      string `json:"sentimentTrajectory"`
	SellerPersonalityProfile string `json:"sellerPersonalityProfile"`
	SellerDesperationScore   int    `json:"sellerDesperationScore"`
	RelationshipWarmthScore  int    `json:"relationshipWarmthScore"`

	// Timeline
	CriticalDeadlines    []string `json:"criticalDeadlines"`
	DaysUntilDeadline    int      `json:"daysUntilDeadline"`
	SellerUrgencyScore   int      `json:"sellerUrgencyScore"`
	ThreadDuration       string   `json:"threadDuration"`
	MessageCountBuyer    int      `json:"messageCountBuyer"`
	MessageCountSeller   int      `json:"messageCountSeller"`
	AvgResponseTimeHours float64  `json:"avgResponseTimeHours"`

	// Pricing
	SellerQuotedPrices       []string `json:"sellerQuotedPrices"`
	BuyerTargetPrice         string   `json:"buyerTargetPrice"`
	LatestQuotedPrice        float64  `json:"latestQuotedPrice"`
	LatestDiscountPercentage float64  `json:"latestDiscountPercentage"`
	Currency                 string   `json:"currency"`

	// Negotiation status
	OverallDealHealthScore    int     `json:"overallDealHealthScore"`
	DealPhase                 string  `json:"dealPhase"`
	OfferSaturationLevel      string  `json:"offerSaturationLevel"`
	RemainingWiggleRoom       float64 `json:"remainingWiggleRoom"`
	LeverageDistribution      string  `json:"leverageDistribution"`
	LeverageReasoning         string  `json:"leverageReasoning"`
	StalemateRiskProbability  float64 `json:"stalemateRiskProbability"`
	BuyerPowerIndex           int     `json:"buyerPowerIndex"`
	SellerFloorHitProbability float64 `json:"sellerFloorHitProbability"`
	ConcessionVelocityScore   int     `json:"concessionVelocityScore"`
	WalkAwayReadiness         string  `json:"walkAwayReadiness"`

	// Parties
	BuyerEntityName         string   `json:"buyerEntityName"`
	SellerEntityName        string   `json:"sellerEntityName"`
	SellerLocation          string   `json:"sellerLocation"`
	DecisionMakers          []string `json:"decisionMakers"`
	DecisionMakerIdentified bool     `json:"decisionMakerIdentified"`
	SellerTeamSize          int      `json:"sellerTeamSize"`

	// Constraints
	MustHaveRequirements     []string `json:"mustHaveRequirements"`
	NiceToHaveRequirements   []string `json:"niceToHaveRequirements"`
	ComplianceObligations    []string `json:"complianceObligations"`
	LegalContractualBlockers []string `json:"legalContractualBlockers"`
	LegalComplexityScore     int      `json:"legalComplexityScore"`

	// Concessions
	SellerConcessions []string `json:"sellerConcessions"`
	BuyerConcessions  []string `json:"buyerConcessions"`
	FirstOfferAnchor  string   `json:"firstOfferAnchor"`

	// Strategy
	Strategies                 []Strategy `json:"strategies"`
	RecommendedStrategy        string     `json:"recommendedStrategy"`
	StrategySuccessProbability float64    `json:"strategySuccessProbability"`
	SuggestedNextMove          string     `json:"suggestedNextMove"`
	MarketContextSummary       string     `json:"marketContextSummary"`
	Summary                    string     `json:"summary"`
}

// VendorMetadata pairs a normalized record with the vendor it belongs to.
type VendorMetadata struct {
	VendorID string   `json:"vendorId"`
	Data     Metadata `json:"data"`
}
