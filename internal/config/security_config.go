package config

type SecurityConfig interface {
	GetTokenSealingKey() string
	IsTokenSealingEnabled() bool
}

type Security struct {
	// Base64 encoded 32 byte key. Empty stores tokens in plain text.
	TokenSealingKey string `env:"TOKEN_SEALING_KEY"`
}

var _ SecurityConfig = Security{}

func (s Security) GetTokenSealingKey() string {
	return s.TokenSealingKey
}

func (s Security) IsTokenSealingEnabled() bool {
	return s.TokenSealingKey != ""
}
