package matching

// PricingRules holds the checkout discounts, in cents.
type PricingRules struct {
	BundleDiscountCents int64
	BundleSize          int
	MaxSelection        int
}

// DefaultPricingRules is R$ 3,00 off a full bundle of 5 selections.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		BundleDiscountCents: 300,
		BundleSize:          5,
		MaxSelection:        MaxMatches,
	}
}

// PriceBreakdown is the itemised checkout value, in cents.
type PriceBreakdown struct {
	Count               int   `json:"quantidade"`
	UnitPriceCents      int64 `json:"precoUnitario"`
	SubtotalCents       int64 `json:"subtotal"`
	FirstFreeCents      int64 `json:"descontoPrimeiro"`
	BundleDiscountCents int64 `json:"descontoPacote"`
	TotalCents          int64 `json:"valorTotal"`
}

// CalculatePrice prices count selections at unitPriceCents each. A new user gets
// one unit free; a full bundle gets the bundle discount. Never negative.
func CalculatePrice(count int, unitPriceCents int64, isNewUser bool, rules PricingRules) PriceBreakdown {
	if count < 0 {
		count = 0
	}
	if rules.MaxSelection > 0 && count > rules.MaxSelection {
		count = rules.MaxSelection
	}

	pb := PriceBreakdown{
		Count:          count,
		UnitPriceCents: unitPriceCents,
		SubtotalCents:  int64(count) * unitPriceCents,
	}
	if isNewUser && count >= 1 {
		pb.FirstFreeCents = unitPriceCents
	}
	if rules.BundleSize > 0 && count == rules.BundleSize {
		pb.BundleDiscountCents = rules.BundleDiscountCents
	}

	pb.TotalCents = pb.SubtotalCents - pb.FirstFreeCents - pb.BundleDiscountCents
	if pb.TotalCents < 0 {
		pb.TotalCents = 0
	}
	return pb
}

// CentsToReais converts cents to the decimal value stored on the transaction.
func CentsToReais(cents int64) float64 {
	return float64(cents) / 100
}
