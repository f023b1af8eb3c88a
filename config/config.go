package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielrs/polycopy/internal/domain"
)

// Config es la configuración completa de polycopy.
type Config struct {
	Copier  CopierConfig  `yaml:"copier"`
	Tracker TrackerConfig `yaml:"tracker"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// CopierConfig controla el comportamiento del copy engine.
type CopierConfig struct {
	TargetWallet        string  `yaml:"target_wallet"` // proxy wallet observada
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	MaxFraction         float64 `yaml:"max_fraction"`      // techo duro por orden, fracción del balance
	MinOrderUSDC        float64 `yaml:"min_order_usdc"`    // mínimo notional del venue
	MinOrderTokens      float64 `yaml:"min_order_tokens"`  // mínimo en tokens del venue
	FallbackFraction    float64 `yaml:"fallback_fraction"` // cuando el portfolio estimado es <= 0
}

// TrackerConfig controla el portfolio tracker.
type TrackerConfig struct {
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
}

// APIConfig contiene los base URLs de las APIs externas.
type APIConfig struct {
	CLOBBase      string `yaml:"clob_base"`
	DataBase      string `yaml:"data_base"`
	EtherscanBase string `yaml:"etherscan_base"`
	RPCURL        string `yaml:"rpc_url"` // Polygon RPC para redeem on-chain
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Copier.PollIntervalSeconds) * time.Second
}

// RefreshInterval devuelve el intervalo del tracker como time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Tracker.RefreshIntervalSeconds) * time.Second
}

// Sizing mapea los límites de copia al SizingConfig del domain.
func (c *Config) Sizing() domain.SizingConfig {
	return domain.SizingConfig{
		MaxFraction:      c.Copier.MaxFraction,
		MinUSD:           c.Copier.MinOrderUSDC,
		MinTokens:        c.Copier.MinOrderTokens,
		FallbackFraction: c.Copier.FallbackFraction,
	}
}

// Los secretos nunca viven en el YAML: solo en el entorno (o .env local).

// PrivateKey devuelve la private key de Polygon, sin prefijo 0x.
func PrivateKey() string {
	return os.Getenv("POLY_PRIVATE_KEY")
}

// WalletAddress devuelve la dirección de nuestra cuenta (proxy wallet).
func WalletAddress() string {
	return os.Getenv("POLY_WALLET_ADDRESS")
}

// EtherscanAPIKey devuelve la API key de Etherscan para el balance fallback.
func EtherscanAPIKey() string {
	return os.Getenv("ETHERSCAN_API_KEY")
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TARGET_WALLET"); v != "" {
		cfg.Copier.TargetWallet = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	def := domain.DefaultSizingConfig()

	if cfg.Copier.PollIntervalSeconds <= 0 {
		cfg.Copier.PollIntervalSeconds = 30
	}
	if cfg.Copier.MaxFraction <= 0 {
		cfg.Copier.MaxFraction = def.MaxFraction
	}
	if cfg.Copier.MinOrderUSDC <= 0 {
		cfg.Copier.MinOrderUSDC = def.MinUSD
	}
	if cfg.Copier.MinOrderTokens <= 0 {
		cfg.Copier.MinOrderTokens = def.MinTokens
	}
	if cfg.Copier.FallbackFraction <= 0 {
		cfg.Copier.FallbackFraction = def.FallbackFraction
	}
	if cfg.Tracker.RefreshIntervalSeconds <= 0 {
		cfg.Tracker.RefreshIntervalSeconds = 60
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.RPCURL == "" {
		cfg.API.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polycopy.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
