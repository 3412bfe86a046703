package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		Symbols           []string          `yaml:"symbols"`
		CycleSpec         string            `yaml:"cycle_spec"`          // cron spec driving evaluation cycles
		HistoryWindow     int               `yaml:"history_window"`      // candles fed to the regime classifier
		VoteTimeout       time.Duration     `yaml:"vote_timeout"`        // per-agent query bound
		AgentRateCapacity float64           `yaml:"agent_rate_capacity"` // token bucket size per agent
		AgentRateRefill   float64           `yaml:"agent_rate_refill"`   // tokens per second
		SymbolTags        map[string]string `yaml:"symbol_tags"`         // symbol -> specialization tag
	} `yaml:"engine"`
	Consensus struct {
		MajorityThreshold   float64       `yaml:"majority_threshold"`
		NeutralBand         float64       `yaml:"neutral_band"`
		MaxSymbolNotional   float64       `yaml:"max_symbol_notional"`
		SpecializationBonus float64       `yaml:"specialization_bonus"`
		WeightHalfLife      time.Duration `yaml:"weight_half_life"`
		WeightRefresh       time.Duration `yaml:"weight_refresh"`
	} `yaml:"consensus"`
	Regime struct {
		MinWindow       int     `yaml:"min_window"`
		ShortWindow     int     `yaml:"short_window"`
		TrendThreshold  float64 `yaml:"trend_threshold"`   // slope/vol ratio separating trend from range
		NewsZScore      float64 `yaml:"news_zscore"`       // recent price/volume z-score flagging news
		LiquidityRatio  float64 `yaml:"liquidity_ratio"`   // volume-vs-move ratio flagging thin books
		HighVolPercent  float64 `yaml:"high_vol_percentile"`
		LowVolPercent   float64 `yaml:"low_vol_percentile"`
	} `yaml:"regime"`
	Correlation struct {
		MaxDirectionalExposure float64 `yaml:"max_directional_exposure"` // fraction of total capital
		SymbolCap              float64 `yaml:"symbol_cap"`               // per-symbol fraction of total capital
		MediumRatio            float64 `yaml:"medium_ratio"`
		HighRatio              float64 `yaml:"high_ratio"`
	} `yaml:"correlation"`
	Risk struct {
		MaxPositionNotional  float64 `yaml:"max_position_notional"`
		MaxPortfolioLeverage float64 `yaml:"max_portfolio_leverage"`
		DailyLossLimit       float64 `yaml:"daily_loss_limit"`
		DefaultTakeProfitPct float64 `yaml:"default_take_profit_pct"`
		DefaultStopLossPct   float64 `yaml:"default_stop_loss_pct"`
		RolloverSpec         string  `yaml:"rollover_spec"` // cron spec for the daily reset
	} `yaml:"risk"`
	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	} `yaml:"breaker"`
	Agents    []AgentConfig `yaml:"agents"`
	Portfolio struct {
		URL          string        `yaml:"url"`           // execution collaborator's snapshot endpoint
		Timeout      time.Duration `yaml:"timeout"`
		TotalCapital float64       `yaml:"total_capital"` // static fallback when no URL is set
	} `yaml:"portfolio"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		CandleInterval time.Duration `yaml:"candle_interval"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		Topic         string   `yaml:"topic"`
		OutcomesTopic string   `yaml:"outcomes_topic"`
		GroupID       string   `yaml:"group_id"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Audit struct {
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"audit"`
}

// AgentConfig describes one analysis agent queried each cycle.
type AgentConfig struct {
	ID             string        `yaml:"id"`
	Type           string        `yaml:"type"`
	URL            string        `yaml:"url"`
	Specialization string        `yaml:"specialization"`
	Timeout        time.Duration `yaml:"timeout"` // overrides engine.vote_timeout when set
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Engine.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("KAFKA_OUTCOMES_TOPIC"); v != "" {
		c.Kafka.OutcomesTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}

	return c, nil
}

// applyDefaults fills documented defaults so an entry is only required in
// YAML when the operator wants to deviate from them.
func (c *Config) applyDefaults() {
	if c.Engine.HistoryWindow == 0 {
		c.Engine.HistoryWindow = 120
	}
	if c.Engine.VoteTimeout == 0 {
		c.Engine.VoteTimeout = 3 * time.Second
	}
	if c.Engine.CycleSpec == "" {
		c.Engine.CycleSpec = "@every 1m"
	}
	if c.Engine.AgentRateCapacity == 0 {
		c.Engine.AgentRateCapacity = 8
	}
	if c.Engine.AgentRateRefill == 0 {
		c.Engine.AgentRateRefill = 4
	}
	if c.Consensus.MajorityThreshold == 0 {
		c.Consensus.MajorityThreshold = 0.55
	}
	if c.Consensus.NeutralBand == 0 {
		c.Consensus.NeutralBand = 0.1
	}
	if c.Consensus.SpecializationBonus == 0 {
		c.Consensus.SpecializationBonus = 1.2
	}
	if c.Consensus.WeightHalfLife == 0 {
		c.Consensus.WeightHalfLife = 72 * time.Hour
	}
	if c.Consensus.WeightRefresh == 0 {
		c.Consensus.WeightRefresh = 5 * time.Minute
	}
	if c.Regime.MinWindow == 0 {
		c.Regime.MinWindow = 20
	}
	if c.Regime.ShortWindow == 0 {
		c.Regime.ShortWindow = 10
	}
	if c.Regime.TrendThreshold == 0 {
		c.Regime.TrendThreshold = 1.0
	}
	if c.Regime.NewsZScore == 0 {
		c.Regime.NewsZScore = 3.0
	}
	if c.Regime.LiquidityRatio == 0 {
		c.Regime.LiquidityRatio = 0.25
	}
	if c.Regime.HighVolPercent == 0 {
		c.Regime.HighVolPercent = 0.8
	}
	if c.Regime.LowVolPercent == 0 {
		c.Regime.LowVolPercent = 0.2
	}
	if c.Correlation.MaxDirectionalExposure == 0 {
		c.Correlation.MaxDirectionalExposure = 0.6
	}
	if c.Correlation.SymbolCap == 0 {
		c.Correlation.SymbolCap = 0.2
	}
	if c.Correlation.MediumRatio == 0 {
		c.Correlation.MediumRatio = 0.5
	}
	if c.Correlation.HighRatio == 0 {
		c.Correlation.HighRatio = 0.75
	}
	if c.Risk.MaxPortfolioLeverage == 0 {
		c.Risk.MaxPortfolioLeverage = 2.0
	}
	if c.Risk.DefaultTakeProfitPct == 0 {
		c.Risk.DefaultTakeProfitPct = 4.0
	}
	if c.Risk.DefaultStopLossPct == 0 {
		c.Risk.DefaultStopLossPct = 2.0
	}
	if c.Risk.RolloverSpec == "" {
		c.Risk.RolloverSpec = "0 0 * * *"
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.RecoveryTimeout == 0 {
		c.Breaker.RecoveryTimeout = 60 * time.Second
	}
	if c.Portfolio.Timeout == 0 {
		c.Portfolio.Timeout = 3 * time.Second
	}
	if c.Feed.CandleInterval == 0 {
		c.Feed.CandleInterval = time.Minute
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "tradequorum"
	}
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = 100
	}
	if c.Audit.BatchTimeout == 0 {
		c.Audit.BatchTimeout = 2 * time.Second
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 5 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols cannot be empty")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("agents cannot be empty")
	}
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agents[%d].id is required", i)
		}
		if a.URL == "" {
			return fmt.Errorf("agents[%d].url is required", i)
		}
	}
	if c.Consensus.MajorityThreshold <= 0.5 || c.Consensus.MajorityThreshold >= 1 {
		return fmt.Errorf("consensus.majority_threshold must be in (0.5, 1), got %v", c.Consensus.MajorityThreshold)
	}
	if c.Risk.DailyLossLimit < 0 {
		return fmt.Errorf("risk.daily_loss_limit cannot be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
