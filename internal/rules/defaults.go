package rules

import "recondiag/internal/dataset"

// DefaultPVRuleSet returns the built-in present-value dimension rules.
// External ruleset files replace these wholesale, never merge.
func DefaultPVRuleSet() *RuleSet {
	return &RuleSet{
		Version:    rulesetSchemaVersion,
		Dimension:  "pv",
		FlagColumn: dataset.ColPVMismatch,
		Rules: []Rule{
			{
				Condition: "PV_old is None",
				Label:     "New trade – no prior valuation",
				Priority:  1,
				Category:  "trade_lifecycle",
			},
			{
				Condition: "PV_new is None",
				Label:     "Trade dropped from new model",
				Priority:  1,
				Category:  "trade_lifecycle",
			},
			{
				Condition: "FundingCurve == 'USD-LIBOR' and ModelVersion != 'v2024.3'",
				Label:     "Legacy LIBOR curve with outdated model – PV likely shifted",
				Priority:  2,
				Category:  "curve_model",
			},
			{
				Condition: "CSA_Type == 'Cleared' and PV_Mismatch == True",
				Label:     "CSA changed post-clearing – funding basis moved",
				Priority:  2,
				Category:  "funding_csa",
			},
		},
	}
}

// DefaultDeltaRuleSet returns the built-in sensitivity dimension rules.
func DefaultDeltaRuleSet() *RuleSet {
	return &RuleSet{
		Version:    rulesetSchemaVersion,
		Dimension:  "delta",
		FlagColumn: dataset.ColDeltaMismatch,
		Rules: []Rule{
			{
				Condition: "ProductType == 'Option' and Delta_Mismatch == True",
				Label:     "Vol sensitivity likely – delta impact due to model curve shift",
				Priority:  2,
				Category:  "volatility",
			},
		},
	}
}
