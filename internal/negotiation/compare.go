package negotiation

type ComparisonRow struct {
	VendorID                  string  `json:"vendorId"`
	ProductName               string  `json:"productName"`
	SellerEntityName          string  `json:"sellerEntityName"`
	OverallDealHealthScore    int     `json:"overallDealHealthScore"`
	HealthLabel               string  `json:"healthLabel"`
	LatestQuotedPrice         float64 `json:"latestQuotedPrice"`
	Currency                  string  `json:"currency"`
	LatestDiscountPercentage  float64 `json:"latestDiscountPercentage"`
	RemainingWiggleRoom       float64 `json:"remainingWiggleRoom"`
	DealPhase                 string  `json:"dealPhase"`
	BuyerPowerIndex           int     `json:"buyerPowerIndex"`
	StalemateRiskProbability  float64 `json:"stalemateRiskProbability"`
	RiskLevel                 string  `json:"riskLevel"`
	SellerFloorHitProbability float64 `json:"sellerFloorHitProbability"`
	SellerUrgencyScore        int     `json:"sellerUrgencyScore"`
}

type Comparison struct {
	Rows             []ComparisonRow `json:"rows"`
	HealthiestVendor string          `json:"healthiestVendor"`
	LowestRiskVendor string          `json:"lowestRiskVendor"`
}

// HealthLabel buckets a 0-100 deal health score.
func HealthLabel(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	}
	return "At Risk"
}

// RiskLevel buckets a stalemate risk percentage.
func RiskLevel(risk float64) string {
	switch {
	case risk <= 20:
		return "Low"
	case risk <= 40:
		return "Moderate"
	case risk <= 60:
		return "Elevated"
	}
	return "High"
}

// Compare lays several vendors' metadata side by side, keeping input order.
// On ties the earlier vendor wins the summary picks.
func Compare(items []VendorMetadata) Comparison {
	out := Comparison{Rows: make([]ComparisonRow, 0, len(items))}
	healthiest, lowestRisk := -1, -1
	for i, it := range items {
		m := it.Data
		out.Rows = append(out.Rows, ComparisonRow{
			VendorID:                  it.VendorID,
			ProductName:               m.ProductName,
			SellerEntityName:          m.SellerEntityName,
			OverallDealHealthScore:    m.OverallDealHealthScore,
			HealthLabel:               HealthLabel(m.OverallDealHealthScore),
			LatestQuotedPrice:         m.LatestQuotedPrice,
			Currency:                  m.Currency,
			LatestDiscountPercentage:  m.LatestDiscountPercentage,
			RemainingWiggleRoom:       m.RemainingWiggleRoom,
			DealPhase:                 m.DealPhase,
			BuyerPowerIndex:           m.BuyerPowerIndex,
			StalemateRiskProbability:  m.StalemateRiskProbability,
			RiskLevel:                 RiskLevel(m.StalemateRiskProbability),
			SellerFloorHitProbability: m.SellerFloorHitProbability,
			SellerUrgencyScore:        m.SellerUrgencyScore,
		})

		if healthiest < 0 || m.OverallDealHealthScore > items[healthiest].Data.OverallDealHealthScore {
			healthiest = i
		}
		if lowestRisk < 0 || m.StalemateRiskProbability < items[lowestRisk].Data.StalemateRiskProbability {
			lowestRisk = i
		}
	}
	if healthiest >= 0 {
		out.HealthiestVendor = items[healthiest].VendorID
		out.LowestRiskVendor = items[lowestRisk].VendorID
	}
	return out
}
