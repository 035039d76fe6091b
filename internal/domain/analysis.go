package domain

// Capability names one of the independent LLM sub-analyses.
type Capability string

const (
	CapabilitySummarize    Capability = "summarize"
	CapabilitySentiment    Capability = "analyze_sentiment"
	CapabilityEntities     Capability = "extract_entities"
	CapabilityMarketImpact Capability = "assess_market_impact"
)

// Capabilities is the full set, in execution order.
var Capabilities = []Capability{
	CapabilitySummarize,
	CapabilitySentiment,
	CapabilityEntities,
	CapabilityMarketImpact,
}

// AnalysisResult is what one capability call returns. Confidence below
// the configured threshold causes the caller to discard the result.
type AnalysisResult struct {
	Capability Capability `json:"capability"`
	Text       string     `json:"text,omitempty"`
	Labels     []string   `json:"labels,omitempty"`
	Confidence float64    `json:"confidence"`
}
