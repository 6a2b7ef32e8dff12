package negotiation

// Shape identifies which section-naming convention an analytics document uses.
type Shape string

const (
	ShapePhase Shape = "phase"
	ShapeFlat  Shape = "flat"
)

const notSpecified = "Not specified"

// DetectShape reports ShapePhase when the document carries a phase_1 key
// (whatever its value) and ShapeFlat otherwise.
func DetectShape(raw map[string]any) Shape {
	if _, ok := raw["phase_1"]; ok {
		return ShapePhase
	}
	return ShapeFlat
}

type sections struct {
	commercial  section
	sentiment   section
	tone        section
	technical   section
	timeline    section
	pricing     section
	constraints section
	parties     section
	concessions section
	status      section
	summary     section
	strategy    section
}

func splitSections(raw map[string]any) sections {
	if DetectShape(raw) == ShapePhase {
		p1 := asSection(raw["phase_1"])
		p2 := asSection(raw["phase_2"])
		return sections{
			commercial:  asSection(p1["CommercialContext"]),
			sentiment:   asSection(p1["SentimentAnalysis"]),
			tone:        asSection(p1["ToneAndStrategyCues"]),
			technical:   asSection(p1["TechnicalArtifacts"]),
			timeline:    asSection(p1["TimelineInformation"]),
			pricing:     asSection(p1["PricingInformation"]),
			constraints: asSection(p1["HeavyConstraints"]),
			parties:     asSection(p1["PartiesAndRoles"]),
			concessions: asSection(p1["ConcessionsAndSignals"]),
			// the backend spells this key without the second "i"
			status:   asSection(p2["NegotationStatus"]),
			summary:  asSection(p2["SummaryProvider"]),
			strategy: asSection(raw["phase_3"]),
		}
	}
	return sections{
		commercial:  asSection(raw["Commercial Context"]),
		sentiment:   asSection(raw["Sentiment Analysis"]),
		tone:        asSection(raw["Tone and Strategy Cues"]),
		technical:   asSection(raw["Technical Artifacts"]),
		timeline:    asSection(raw["Timeline Information"]),
		pricing:     asSection(raw["Pricing Information"]),
		constraints: asSection(raw["Heavy Constraints"]),
		parties:     asSection(raw["Parties and Roles"]),
		concessions: asSection(raw["Concessions and Negotiation Signals"]),
		status:      asSection(raw["Negotiation Status & Health"]),
		summary:     asSection(raw["Summary"]),
		strategy:    asSection(raw["Research-Backed Response Strategies"]),
	}
}

// Normalize converts one raw analytics document, in either the phase-keyed
// or the flat human-labeled shape, into a complete Metadata value. It never
// fails: missing or malformed data degrades to per-field defaults.
func Normalize(raw map[string]any) Metadata {
	s := splitSections(raw)
	strategies := normalizeStrategies(s.strategy)

	successProbability := 50.0
	if len(strategies) > 0 {
		successProbability = strategies[0].SuccessProbability
	}

	return Metadata{
		ProductName:    s.commercial.str("Unknown Product", "product_or_service_name", "productName"),
		Quantities:     s.commercial.str(notSpecified, "quantities"),
		DealTermMonths: s.commercial.optionalInt("deal_term_months", "dealTermMonths"),

		CurrentSentiment:         s.sentiment.str("Neutral", "current_conversation_sentiment", "currentSentiment"),
		SentimentTrajectory:      s.sentiment.str("Stable", "sentiment_trajectory", "sentimentTrajectory"),
		SellerPersonalityProfile: s.sentiment.str("Unknown", "seller_personality_profile", "sellerPersonalityProfile"),
		SellerDesperationScore:   s.sentiment.integer(5, "seller_desperation_score", "sellerDesperationScore"),
		RelationshipWarmthScore:  s.sentiment.integer(5, "relationship_warmth_score", "relationshipWarmthScore"),

		CriticalDeadlines:    s.timeline.list("critical_deadlines", "criticalDeadlines"),
		DaysUntilDeadline:    s.timeline.integer(0, "days_until_critical_deadline", "daysUntilDeadline"),
		SellerUrgencyScore:   s.timeline.integer(5, "seller_urgency_score", "sellerUrgencyScore"),
		ThreadDuration:       s.technical.str("Unknown", "thread_duration", "threadDuration"),
		MessageCountBuyer:    s.technical.integer(0, "message_count_buyer", "messageCountBuyer"),
		MessageCountSeller:   s.technical.integer(0, "message_count_seller", "messageCountSeller"),
		AvgResponseTimeHours: s.technical.num(0, "avg_response_time_hours_seller", "avgResponseTimeHours"),

		SellerQuotedPrices:       s.pricing.prices("seller_quoted_prices", "sellerQuotedPrices"),
		BuyerTargetPrice:         s.pricing.price("buyer_target_price", "buyerTargetPrice"),
		LatestQuotedPrice:        s.pricing.num(0, "latest_quoted_price_numeric", "latestQuotedPrice"),
		LatestDiscountPercentage: s.pricing.num(0, "latest_discount_percentage", "latestDiscountPercentage"),
		Currency:                 s.pricing.str("USD", "currency_code", "currency"),

		OverallDealHealthScore:    s.status.integer(50, "overall_deal_health_score", "overallDealHealthScore"),
		DealPhase:                 s.status.str("Unknown", "deal_phase", "dealPhase"),
		OfferSaturationLevel:      s.status.str("Unknown", "offer_saturation_level", "offerSaturationLevel"),
		RemainingWiggleRoom:       s.status.num(0, "remaining_price_wiggle_room_estimate", "remainingWiggleRoom"),
		LeverageDistribution:      s.status.str("Balanced", "leverage_distribution", "leverageDistribution"),
		LeverageReasoning:         s.status.str("No reasoning available", "leverage_reasoning", "leverageReasoning"),
		StalemateRiskProbability:  s.status.num(0, "stalemate_risk_probability", "stalemateRiskProbability"),
		BuyerPowerIndex:           s.tone.integer(5, "buyer_power_index", "buyerPowerIndex"),
		SellerFloorHitProbability: s.concessions.num(0, "seller_floor_hit_probability", "sellerFloorHitProbability"),
		ConcessionVelocityScore:   s.concessions.integer(5, "concession_velocity_score", "concessionVelocityScore"),
		WalkAwayReadiness:         s.status.str("Unknown", "walk_away_readiness", "walkAwayReadiness"),

		BuyerEntityName:         s.parties.str("Unknown Buyer", "buyer_entity_name", "buyerEntityName"),
		SellerEntityName:        s.parties.str("Unknown Seller", "seller_entity_name", "sellerEntityName"),
		SellerLocation:          s.parties.str("Unknown Location", "seller_global_location", "sellerLocation"),
		DecisionMakers:          s.parties.list("decision_makers", "decisionMakers"),
		DecisionMakerIdentified: s.parties.flag("decision_maker_identified", "decisionMakerIdentified"),
		SellerTeamSize:          s.parties.integer(1, "seller_team_size", "sellerTeamSize"),

		MustHaveRequirements:     s.constraints.list("must_have_requirements", "mustHaveRequirements"),
		NiceToHaveRequirements:   s.constraints.list("nice_to_have_requirements", "niceToHaveRequirements"),
		ComplianceObligations:    s.constraints.list("compliance_obligations", "complianceObligations"),
		LegalContractualBlockers: s.constraints.list("legal_contractual_blockers", "legalContractualBlockers"),
		LegalComplexityScore:     s.constraints.integer(5, "legal_complexity_score", "legalComplexityScore"),

		SellerConcessions: s.concessions.list("seller_concessions", "sellerConcessions"),
		BuyerConcessions:  s.concessions.list("buyer_concessions", "buyerConcessions"),
		FirstOfferAnchor:  s.concessions.price("first_offer_anchor", "firstOfferAnchor"),

		Strategies:                 strategies,
		RecommendedStrategy:        s.strategy.str("No recommendation", "best_strategy_recommendation", "recommendedStrategy"),
		StrategySuccessProbability: successProbability,
		SuggestedNextMove:          s.tone.str("Continue negotiation", "suggested_next_move", "suggestedNextMove"),
		MarketContextSummary:       s.strategy.str("", "market_context_summary", "marketContextSummary"),
		Summary:                    s.summary.str("No summary available", "summary"),
	}
}

func normalizeStrategies(s section) []Strategy {
	items, ok := s["strategies"].([]any)
	if !ok {
		return []Strategy{}
	}
	out := make([]Strategy, 0, len(items))
	for _, item := range items {
		out = append(out, normalizeStrategy(asSection(item)))
	}
	return out
}

func normalizeStrategy(s section) Strategy {
	return Strategy{
		StrategyName:           s.str("Unknown", "strategy_name", "strategyName"),
		ToneToAdopt:            s.str("Neutral", "tone_to_adopt", "toneToAdopt"),
		RecommendedBullets:     s.list("recommended_email_body_bullets", "recommendedBullets"),
		CounterOfferAmount:     s.num(0, "specific_counter_offer_amount", "counterOfferAmount"),
		PsychologicalMechanism: s.str("", "psychological_mechanism_used", "psychologicalMechanism"),
		WhyThisWorks:           s.str("", "why_this_works", "whyThisWorks"),
		SuccessProbability:     s.num(50, "success_probability", "successProbability"),
	}
}
