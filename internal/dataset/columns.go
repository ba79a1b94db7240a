package dataset

// Canonical column names for the two-run valuation extract.
// Upstream merge produces the identity, value, and flag columns;
// the diagnosis pass appends the four diagnosis columns.
const (
	ColTradeID = "TradeID"

	ColPVOld     = "PV_old"
	ColPVNew     = "PV_new"
	ColPVDiff    = "PV_Diff"
	ColDeltaOld  = "Delta_old"
	ColDeltaNew  = "Delta_new"
	ColDeltaDiff = "Delta_Diff"

	ColProductType  = "ProductType"
	ColFundingCurve = "FundingCurve"
	ColCSAType      = "CSA_Type"
	ColModelVersion = "ModelVersion"
	ColTradeDate    = "TradeDate"

	ColPVMismatch    = "PV_Mismatch"
	ColDeltaMismatch = "Delta_Mismatch"
	ColAnyMismatch   = "Any_Mismatch"

	ColPVDiagnosis      = "PV_Diagnosis"
	ColDeltaDiagnosis   = "Delta_Diagnosis"
	ColMLPVDiagnosis    = "ML_PV_Diagnosis"
	ColMLDeltaDiagnosis = "ML_Delta_Diagnosis"
)
