package models

// PlanOption is one of the fixed paid plans a user can select when
// generating new content. PriceID is the checkout price identifier the
// content API expects.
type PlanOption struct {
	PriceID string `json:"price_id"`
	Dias    int    `json:"dias"`
	Label   string `json:"label"`
}

// FreePlanDias is the length of the single free-tier agenda.
const FreePlanDias = 5

// PlanOptions is the fixed set of paid plans. Requests carrying a price
// ID outside this set are rejected before any network call.
var PlanOptions = []PlanOption{
	{PriceID: "price_1RkvTvPphAIQfHkyLv2HNYci", Dias: 30, Label: "30 Dias"},
	{PriceID: "price_1RlVzHPphAIQfHkypaLBoAxR", Dias: 60, Label: "60 Dias"},
	{PriceID: "price_1RlW0CPphAIQfHkyzHVlqqyx", Dias: 90, Label: "90 Dias"},
}

// ValidPriceID reports whether the given price ID belongs to the plan set.
func ValidPriceID(priceID string) bool {
	for _, p := range PlanOptions {
		if p.PriceID == priceID {
			return true
		}
	}
	return false
}
