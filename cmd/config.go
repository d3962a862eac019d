package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=5000" validate:"min=1,max=65535"`
	HealthPort           int           `env:"HEALTH_PORT,default=5001" validate:"min=1,max=65535,nefield=Port"`
	LogLevel             string        `env:"LOG_LEVEL,required=true" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	JWTSecret            string        `env:"JWT_SECRET,required=true" validate:"min=16"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=168h" validate:"gt=0"`
	AllowQueryIdentity   bool          `env:"ALLOW_QUERY_IDENTITY,default=false"`
	ClientURL            string        `env:"CLIENT_URL,default=http://localhost:5173" validate:"omitempty,url"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`
	HubBufferSize        int           `env:"HUB_BUFFER_SIZE,default=256" validate:"gt=0"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=1s" validate:"gt=0"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=15s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`
}
