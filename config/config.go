package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Sheet    SheetConfig
	Ledger   LedgerConfig
	I18n     I18nConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver     string // sqlite3 | pgx
	DSN        string // overrides SQLitePath / Postgres when set
	SQLitePath string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// RedisConfig enables the shared per-SKU lock. An empty Addr keeps locks in
// process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string // empty disables the sales listener
	Topic   string
	GroupID string
}

type SheetConfig struct {
	SheetID        string
	Tab            string
	URL            string
	CostTab        string
	CostURL        string
	FetchTimeout   time.Duration
	SyncInterval   time.Duration // 0 disables periodic sync
	SyncOnStart    bool
	QuantityPolicy string // seed | sheet
	StockLocation  string // location that receives sheet quantities
}

type LedgerConfig struct {
	DefaultLocation string
	Locations       []string
	LockTTL         time.Duration
	LockAttempts    int
	LockRetryWait   time.Duration
}

type I18nConfig struct {
	DefaultLang string
	ExtraFiles  []string
}

func LoadEnv() *Config {
	defaultLocation := strings.ToUpper(getEnv("LEDGER_DEFAULT_LOCATION", "GUDANG"))

	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			GRPCPort: getEnv("GRPC_PORT", ":8083"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite3"),
			DSN:        getEnv("DB_DSN", ""),
			SQLitePath: getEnv("SQLITE_PATH", "./ronary_inventory.db"),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "ronary"),
			Password:        getEnv("POSTGRES_PASSWORD", "ronary"),
			DBName:          getEnv("POSTGRES_DB", "ronary_inventory"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_SALES", "sales.events"),
			GroupID: getEnv("KAFKA_GROUP_INVENTORY", "ronary-inventory"),
		},
		Sheet: SheetConfig{
			SheetID:        getEnv("SHEET_ID", ""),
			Tab:            getEnv("SHEET_TAB", "MASTER"),
			URL:            getEnv("SHEET_URL", ""),
			CostTab:        getEnv("SHEET_COST_TAB", ""),
			CostURL:        getEnv("SHEET_COST_URL", ""),
			FetchTimeout:   getEnvDuration("SHEET_FETCH_TIMEOUT", 30*time.Second),
			SyncInterval:   getEnvDuration("SHEET_SYNC_INTERVAL", 0),
			SyncOnStart:    getEnvBool("SYNC_ON_START", true),
			QuantityPolicy: getEnv("SHEET_QUANTITY_POLICY", "seed"),
			StockLocation:  strings.ToUpper(getEnv("SHEET_STOCK_LOCATION", defaultLocation)),
		},
		Ledger: LedgerConfig{
			DefaultLocation: defaultLocation,
			Locations:       getEnvSlice("LEDGER_LOCATIONS", nil),
			LockTTL:         getEnvDuration("LOCK_TTL", 5*time.Second),
			LockAttempts:    getEnvInt("LOCK_ATTEMPTS", 3),
			LockRetryWait:   getEnvDuration("LOCK_RETRY_WAIT", 100*time.Millisecond),
		},
		I18n: I18nConfig{
			DefaultLang: getEnv("I18N_DEFAULT_LANG", "en"),
			ExtraFiles:  getEnvSlice("I18N_EXTRA_FILES", nil),
		},
	}
}

// SheetEnabled reports whether a master sheet source is configured.
func (c *SheetConfig) SheetEnabled() bool {
	return c.URL != "" || c.SheetID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		var out []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return fallback
}
