package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	CORSOrigin    string `env:"CORS_ORIGIN" default:"*"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// Mercado Pago. An empty token disables the PIX endpoints (they answer
	// 500 "not configured" instead of failing at boot).
	MercadoPagoAccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN"`
	PixReceiverName        string `env:"PIX_RECEIVER_NAME"`

	// OpenAI. An empty key disables the chat relay the same way.
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" default:"gpt-4o-mini"`
}
