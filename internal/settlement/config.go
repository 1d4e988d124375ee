package settlement

import "github.com/settlement_center/backend/internal/platform"

// Config carries the pricing and conversion constants of the settlement
// policy. Per-platform reception ratios are overrides resolved with a
// default fallback; everything else is a flat constant.
type Config struct {
	// ReceptionRatios converts bot-answered question volume into equivalent
	// customer receptions, per platform.
	ReceptionRatios map[string]float64

	// DefaultReceptionRatio applies to platforms absent from ReceptionRatios.
	DefaultReceptionRatio float64

	// LaborCostPerReception is the cost of one human-equivalent reception.
	LaborCostPerReception float64

	// UnitPricePerReply prices one bot or scripted reply for traffic revenue.
	UnitPricePerReply float64

	// SeatUnitPrice is the monthly price of one billed seat.
	SeatUnitPrice float64

	// PromoThreshold zeroes out billing for agents whose estimated labor
	// cost falls below it.
	PromoThreshold float64

	// ExemptHours is the online-hours grace allowance before the first
	// additional seat accrues.
	ExemptHours float64

	// HoursPerSeat converts online hours beyond the allowance into seats.
	HoursPerSeat float64

	// DefaultDiscount replaces discount inputs outside [1,10].
	DefaultDiscount float64

	// WildcardTenant selects every registered tenant.
	WildcardTenant string
}

func DefaultConfig() Config {
	return Config{
		ReceptionRatios: map[string]float64{
			platform.Taobao:    4,
			platform.Douyin:    5,
			platform.Pinduoduo: 3.5,
		},
		DefaultReceptionRatio: 4,
		LaborCostPerReception: 0.134,
		UnitPricePerReply:     0.01,
		SeatUnitPrice:         180,
		PromoThreshold:        180,
		ExemptHours:           60,
		HoursPerSeat:          240,
		DefaultDiscount:       5,
		WildcardTenant:        "total",
	}
}

// ReceptionRatio returns the ratio for a canonical platform label, falling
// back to the default for platforms without an override.
func (c Config) ReceptionRatio(platform string) float64 {
	if ratio, ok := c.ReceptionRatios[platform]; ok {
		return ratio
	}
	return c.DefaultReceptionRatio
}

// ValidDiscount clamps the discount input to the supported [1,10] tenths
// scale, silently substituting the default for out-of-range values.
func (c Config) ValidDiscount(discount float64) float64 {
	if discount < 1 || discount > 10 {
		return c.DefaultDiscount
	}
	return discount
}
