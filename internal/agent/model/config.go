package model

// ================ Config ================
type ConversationConfig struct {
	TTL    string `envconfig:"CONVERSATION_TTL" default:"24h"`
	Router struct {
		MaxTurns int `envconfig:"CONVERSATION_ROUTER_MAX_TURNS" default:"5"`
	}
}

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
}

type PersonaPromptConfig struct {
	ProgramName  string `envconfig:"PROMPT_PROGRAM_NAME" default:"NeuroSync"`
	Jurisdiction string `envconfig:"PROMPT_JURISDICTION" default:"United States (IDEA / Section 504)"`
}

// DocumentConfig bounds how much ingested record text reaches prompts and
// storage. Both limits are rune-prefix cuts, deliberately not token-aware.
type DocumentConfig struct {
	MaxContextChars int `envconfig:"DOCUMENT_MAX_CONTEXT_CHARS" default:"12000"`
	MaxStoredChars  int `envconfig:"DOCUMENT_MAX_STORED_CHARS" default:"20000"`
	ProfileChars    int `envconfig:"DOCUMENT_PROFILE_CHARS" default:"3000"`
}
