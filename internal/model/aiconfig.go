package model

// Personality is a named, reusable AI configuration selectable per turn,
// distinct from the company-wide default.
type Personality struct {
	ID                 string   `json:"id"`
	CompanyID          string   `json:"company_id"`
	Name               string   `json:"name"`
	Provider           string   `json:"provider"`
	Model              string   `json:"model"`
	SystemPrompt       string   `json:"system_prompt"`
	Tone               string   `json:"tone,omitempty"`
	ProhibitedTopics   []string `json:"prohibited_topics,omitempty"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
	MaxTokens           int      `json:"max_tokens"`
	Temperature         float64  `json:"temperature"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
	ProductSearch       bool     `json:"product_search"`
	RAGTopK             int      `json:"rag_top_k"`
	KnowledgeBaseScope  []string `json:"knowledge_base_scope,omitempty"`
	Active              bool     `json:"active"`
	Priority            int      `json:"priority"`
}

// CompanyAIConfig is the company-level default configuration used when no
// personality is specified for a turn. At most one active config per company.
type CompanyAIConfig struct {
	CompanyID           string   `json:"company_id"`
	Provider            string   `json:"provider"`
	Model               string   `json:"model"`
	FallbackProvider    string   `json:"fallback_provider,omitempty"`
	SystemPrompt        string   `json:"system_prompt"`
	Tone                string   `json:"tone,omitempty"`
	ProhibitedTopics    []string `json:"prohibited_topics,omitempty"`
	MaxTokens           int      `json:"max_tokens"`
	Temperature         float64  `json:"temperature"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
	AutoRespond         bool     `json:"auto_respond"`
	ResponseDelaySec    int      `json:"response_delay_sec,omitempty"`
	ProductSearch       bool     `json:"product_search"`
	RAGTopK             int      `json:"rag_top_k"`
	Active              bool     `json:"active"`
}

// CompanyProfile holds the business facts injected into prompts.
type CompanyProfile struct {
	CompanyID      string `json:"company_id"`
	Name           string `json:"name"`
	Contact        string `json:"contact,omitempty"`
	BusinessHours  string `json:"business_hours,omitempty"`
	BookingEnabled bool   `json:"booking_enabled,omitempty"`
	BookingSlots   string `json:"booking_slots,omitempty"`
}

// ResolvedAIConfig is the single shape the orchestrator reasons about after
// merging a personality over the company default. Produced only by the
// resolution step; downstream code never touches the two raw sources.
type ResolvedAIConfig struct {
	CompanyID          string
	PersonalityID      string
	Provider           string
	Model              string
	FallbackProvider   string
	SystemPrompt       string
	Tone               string
	ProhibitedTopics   []string
	CustomInstructions string
	MaxTokens           int
	Temperature         float64
	ConfidenceThreshold float64
	ProductSearch       bool
	RAGTopK             int
	KnowledgeBaseScope  []string
}
