package config

type AuditConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
}

type Audit struct{}

var _ AuditConfig = Audit{}

// GetAMQPURL returns the RabbitMQ URL for security events. Empty disables the AMQP sink.
func (Audit) GetAMQPURL() string {
	return GetEnv("AMQP_URL", "")
}

func (Audit) GetAMQPExchange() string {
	return GetEnv("AMQP_EXCHANGE", "session.audit")
}
