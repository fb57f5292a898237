package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	dataDirENV        = "DATA_DIR"
	logLevelENV       = "LOG_LEVEL"

	dateLayout = "2006-01-02"
)

// Entry confirmation modes. 1h_* подтверждаются баром исполнения, 4h_* баром H4:
// *_close вход по open следующего бара, *_close_at_close по цене закрытия,
// *_close_at_near повторным касанием уровня после подтверждения.
const (
	EntryDirectTouch    = "direct_touch"
	EntryClose          = "1h_close"
	EntryCloseAtClose   = "1h_close_at_close"
	EntryCloseAtNear    = "1h_close_at_near"
	EntryH4Close        = "4h_close"
	EntryH4CloseAtClose = "4h_close_at_close"
	EntryH4CloseAtNear  = "4h_close_at_near"
)

// EntryModes: все допустимые значения strategy.entry_confirmation.
var EntryModes = []string{
	EntryDirectTouch,
	EntryClose, EntryCloseAtClose, EntryCloseAtNear,
	EntryH4Close, EntryH4CloseAtClose, EntryH4CloseAtNear,
}

// ValidEntryMode: пустая строка = direct_touch.
func ValidEntryMode(mode string) bool {
	if mode == "" {
		return true
	}
	for _, m := range EntryModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Data sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// StrategyConfig — параметры Model 3 (пивоты, уточнения, SL/TP).
type StrategyConfig struct {
	MinBodyPct        float64 `yaml:"min_body_pct"`         // doji-фильтр, % тела от диапазона
	MaxSizeFrac       float64 `yaml:"max_size_frac"`        // макс. размер уточнения от gap пивота
	MinSLDistancePips float64 `yaml:"min_sl_distance_pips"` // стоп не ближе N пипсов от входа
	RRFloor           float64 `yaml:"rr_floor"`
	RRCeiling         float64 `yaml:"rr_ceiling"`
	SLBufferFrac      float64 `yaml:"sl_buffer_frac"`     // стоп за extreme на долю gap (Fib 1.1)
	PositionTolerance float64 `yaml:"position_tolerance"` // допуск "extreme на near"
	WickDiffMaxFrac   float64 `yaml:"wick_diff_max_frac"` // wick diff как вход, если меньше доли gap
	EntryConfirmation string  `yaml:"entry_confirmation"` // см. EntryModes

	PipSizeOverride map[string]float64 `yaml:"pip_size_override"`
}

// BacktestConfig — что и за какой период гоняем.
type BacktestConfig struct {
	Pairs              []string `yaml:"pairs"`
	HTFTimeframes      []string `yaml:"htf_timeframes"`
	ExecutionTimeframe string   `yaml:"execution_timeframe"`
	Start              string   `yaml:"start"` // YYYY-MM-DD, UTC
	End                string   `yaml:"end"`
	Workers            int      `yaml:"workers"`

	// валидационный режим: случайная выборка пивотов
	SamplePivots int   `yaml:"sample_pivots"`
	SampleSeed   int64 `yaml:"sample_seed"`

	// только для сводки
	RiskPerTrade    float64 `yaml:"risk_per_trade"`
	StartingCapital float64 `yaml:"starting_capital"`

	Quality QualityConfig `yaml:"quality"`
}

// QualityConfig: сетка TP x SL по голым пивотам (вход касанием gap box).
// TP = level +- tp*gap, SL = extreme -+ sl*gap.
type QualityConfig struct {
	Enabled       bool      `yaml:"enabled"`
	TPMultipliers []float64 `yaml:"tp_multipliers"`
	SLMultipliers []float64 `yaml:"sl_multipliers"`
	MinGapPips    float64   `yaml:"min_gap_pips"`
	MaxGapPips    float64   `yaml:"max_gap_pips"`
}

type DataConfig struct {
	Source string `yaml:"source"` // csv | postgres
	Dir    string `yaml:"dir"`
}

type RecorderConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	CSVPath    string `yaml:"csv_path"`
	JSONPath   string `yaml:"json_path"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"` // health
		APIPort   int    `yaml:"api_port"`   // gin API, 0 = выключен
	} `yaml:"service"`
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`

	Strategy StrategyConfig `yaml:"strategy"`
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Recorder RecorderConfig `yaml:"recorder"`

	Schedule struct {
		Cron       string `yaml:"cron"` // пусто => один прогон и выход
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
}

// Default: значения по умолчанию из исходной стратегии.
func Default() Config {
	var cfg Config
	cfg.LogLevel = "info"
	cfg.Service.AdminPort = 8080
	cfg.Strategy = StrategyConfig{
		MinBodyPct:        5.0,
		MaxSizeFrac:       0.20,
		MinSLDistancePips: 60,
		RRFloor:           1.0,
		RRCeiling:         1.5,
		SLBufferFrac:      0.10,
		PositionTolerance: 1e-5,
		WickDiffMaxFrac:   0.20,
		EntryConfirmation: EntryDirectTouch,
	}
	cfg.Backtest = BacktestConfig{
		HTFTimeframes:      []string{"3D", "W", "M"},
		ExecutionTimeframe: "H1",
		Workers:            4,
		RiskPerTrade:       0.01,
		StartingCapital:    100000,
		Quality: QualityConfig{
			TPMultipliers: []float64{1, 2, 3},
			SLMultipliers: []float64{0, 0.5, 1},
			MinGapPips:    10,
			MaxGapPips:    250,
		},
	}
	cfg.Data = DataConfig{Source: SourceCSV, Dir: "data"}
	return cfg
}

// NewConfig читает configs/$CONFIG_FILE поверх дефолтов и применяет env.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	dir := getenvDefault(configDirENV, "configs")

	cfg, err := Load(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load: конфиг из конкретного файла + env + валидация.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err = yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	config.applyEnv()

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	c.Data.Dir = getenvDefault(dataDirENV, c.Data.Dir)
	c.LogLevel = getenvDefault(logLevelENV, c.LogLevel)
}

// Validate: ошибки конфигурации ловим на старте, а не посреди прогона.
func (c *Config) Validate() error {
	if len(c.Backtest.Pairs) == 0 {
		return fmt.Errorf("backtest.pairs is empty")
	}
	if _, err := c.Backtest.HTFs(); err != nil {
		return err
	}
	if _, err := c.Backtest.ExecutionTF(); err != nil {
		return err
	}
	if _, _, err := c.Backtest.Window(); err != nil {
		return err
	}
	if c.Backtest.Workers <= 0 {
		return fmt.Errorf("backtest.workers must be > 0")
	}
	if c.Backtest.SamplePivots < 0 {
		return fmt.Errorf("backtest.sample_pivots must be >= 0")
	}
	if err := c.Backtest.Quality.Validate(); err != nil {
		return err
	}
	if !ValidEntryMode(c.Strategy.EntryConfirmation) {
		return fmt.Errorf("unknown strategy.entry_confirmation: %q", c.Strategy.EntryConfirmation)
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for csv source")
		}
	case SourcePostgres:
		if c.DB == "" {
			return fmt.Errorf("db_dsn is required for postgres source")
		}
	default:
		return fmt.Errorf("unknown data.source: %q", c.Data.Source)
	}
	return nil
}

// Validate проверяет сетку только если она включена.
func (q QualityConfig) Validate() error {
	if !q.Enabled {
		return nil
	}
	if len(q.TPMultipliers) == 0 || len(q.SLMultipliers) == 0 {
		return fmt.Errorf("backtest.quality: tp_multipliers and sl_multipliers are required")
	}
	for _, m := range q.TPMultipliers {
		if m <= 0 {
			return fmt.Errorf("backtest.quality.tp_multipliers: %v must be > 0", m)
		}
	}
	for _, m := range q.SLMultipliers {
		if m < 0 {
			return fmt.Errorf("backtest.quality.sl_multipliers: %v must be >= 0", m)
		}
	}
	if q.MinGapPips < 0 || (q.MaxGapPips > 0 && q.MaxGapPips < q.MinGapPips) {
		return fmt.Errorf("backtest.quality: bad gap filter [%v, %v]", q.MinGapPips, q.MaxGapPips)
	}
	return nil
}

// NormPairs: пары в каноническом виде (EURUSD).
func (b BacktestConfig) NormPairs() []string {
	out := make([]string, 0, len(b.Pairs))
	for _, p := range b.Pairs {
		if n := helper.NormPair(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// HTFs: таймфреймы пивотов, от старшего к младшему.
func (b BacktestConfig) HTFs() ([]models.Timeframe, error) {
	if len(b.HTFTimeframes) == 0 {
		return nil, fmt.Errorf("backtest.htf_timeframes is empty")
	}
	out := make([]models.Timeframe, 0, len(b.HTFTimeframes))
	for _, raw := range b.HTFTimeframes {
		tf, ok := models.ParseTimeframe(raw)
		if !ok {
			return nil, fmt.Errorf("unknown htf timeframe %q", raw)
		}
		if tf == models.TF1Hour {
			return nil, fmt.Errorf("htf timeframe %q has no lower timeframe", raw)
		}
		out = append(out, tf)
	}
	return out, nil
}

func (b BacktestConfig) ExecutionTF() (models.Timeframe, error) {
	tf, ok := models.ParseTimeframe(b.ExecutionTimeframe)
	if !ok {
		return models.TFNone, fmt.Errorf("unknown execution timeframe %q", b.ExecutionTimeframe)
	}
	return tf, nil
}

// Window: [start, end] в UTC, end включительно до конца дня. Пустые даты = без границы.
func (b BacktestConfig) Window() (from, to time.Time, err error) {
	if s := strings.TrimSpace(b.Start); s != "" {
		from, err = time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest.start: %w", err)
		}
	}
	if s := strings.TrimSpace(b.End); s != "" {
		to, err = time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest.end: %w", err)
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end is before backtest.start")
	}
	return from, to, nil
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
