package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"` // mysql or postgres
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	ServiceJWTSecret    string `env:"SERVICE_JWT_SECRET"`
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"vercel.app"`

	PlatformFeeRate float64       `env:"PLATFORM_FEE_RATE" envDefault:"0.05"`
	SwapTTL         time.Duration `env:"SWAP_TTL" envDefault:"168h"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrdersTopic string   `env:"KAFKA_TOPIC_ORDERS" envDefault:"order.status_changed"`
	KafkaSwapsTopic  string   `env:"KAFKA_TOPIC_SWAPS" envDefault:"swap.status_changed"`

	RedisAddr    string        `env:"REDIS_ADDR"`
	ViewDedupTTL time.Duration `env:"VIEW_DEDUP_TTL" envDefault:"1h"`

	VNPayTmnCode    string `env:"VNPAY_TMN_CODE" envDefault:"DEMO"`
	VNPayHashSecret string `env:"VNPAY_HASH_SECRET" envDefault:"DEMOSECRET"`
	VNPayURL        string `env:"VNPAY_URL" envDefault:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	VNPayReturnURL  string `env:"VNPAY_RETURN_URL" envDefault:"http://localhost:3000/payment/vnpay-return"`

	MoMoPartnerCode string `env:"MOMO_PARTNER_CODE" envDefault:"DEMO"`
	MoMoAccessKey   string `env:"MOMO_ACCESS_KEY" envDefault:"DEMO"`
	MoMoSecretKey   string `env:"MOMO_SECRET_KEY" envDefault:"DEMO"`
	MoMoEndpoint    string `env:"MOMO_ENDPOINT" envDefault:"https://test-payment.momo.vn/v2/gateway/api/create"`
	MoMoRedirectURL string `env:"MOMO_REDIRECT_URL" envDefault:"http://localhost:3000/payment/momo-return"`
	MoMoIPNURL      string `env:"MOMO_IPN_URL" envDefault:"http://localhost:8080/api/payments/momo/ipn"`

	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
