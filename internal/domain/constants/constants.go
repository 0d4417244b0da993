package constants

// Environments
const (
	EnvDevelop    = "develop"
	EnvProduction = "production"
)

// Mail providers
const (
	MailProviderSMTP     = "smtp"
	MailProviderLocal    = "local"
	MailProviderRabbitMQ = "rabbitmq"
)

// Rate limit key strategies
const (
	RateLimitKeyIP      = "ip"
	RateLimitKeyRoute   = "route"
	RateLimitKeyIPRoute = "ip_route"
)
