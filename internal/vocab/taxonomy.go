package vocab

// StaticTaxonomy returns the desk's curated diagnosis taxonomy: the labels
// every vocabulary starts from, grouped by root-cause category. The map is
// freshly built on each call so snapshots can own their copy.
func StaticTaxonomy() map[string][]string {
	return map[string][]string{
		"trade_lifecycle": {
			"New trade – no prior valuation",
			"Trade dropped from new model",
			"Trade amended with new terms",
			"Trade matured or expired",
		},
		"curve_model": {
			"Legacy LIBOR curve with outdated model – PV likely shifted",
			"SOFR transition impact – curve basis changed",
			"Model version update – methodology changed",
			"Curve interpolation changed – end points affected",
		},
		"funding_csa": {
			"CSA changed post-clearing – funding basis moved",
			"Collateral threshold changed – funding cost shifted",
			"New clearing house – margin requirements different",
			"Bilateral to cleared transition – funding curve changed",
		},
		"volatility": {
			"Vol sensitivity likely – delta impact due to model curve shift",
			"Vol surface updated – smile/skew changed",
			"Market stress – vol regime shifted",
			"Option-specific model change – vol dynamics affected",
		},
		"tolerance": {
			"Within tolerance",
			"Minor deviation – no action required",
			"Acceptable range – monitor for trends",
		},
		"data_quality": {
			"Missing data – incomplete valuation",
			"Data corruption – invalid inputs",
			"Timing mismatch – stale data",
			"System error – calculation failed",
		},
		"market_events": {
			"Market volatility – broad repricing",
			"Credit event – counterparty risk changed",
			"Regulatory change – capital requirements updated",
			"Liquidity crisis – funding costs spiked",
		},
	}
}
