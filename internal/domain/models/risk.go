package models

// RiskLevel grades correlation/concentration risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// CorrelationRisk is the result of evaluating a proposed trade against the
// existing open-position set.
type CorrelationRisk struct {
	Level          RiskLevel
	Safe           bool    // always false at high or critical
	SizeAdjustment float64 // multiplicative factor in [0,1], 0 is a hard veto
	Explanation    string
}

// RiskLayer identifies which layer of the guard produced a block.
type RiskLayer string

const (
	LayerPosition  RiskLayer = "position"
	LayerPortfolio RiskLayer = "portfolio"
	LayerDaily     RiskLayer = "daily"
	LayerSystem    RiskLayer = "system"
)

// RiskViolation is a structured "evaluated and rejected" outcome. It is not
// an error: the orchestrator turns it into a NoAction and continues.
type RiskViolation struct {
	Layer     RiskLayer `json:"layer"`
	Code      string    `json:"code"`
	Threshold float64   `json:"threshold"`
	Observed  float64   `json:"observed"`
	Message   string    `json:"message"`
}
