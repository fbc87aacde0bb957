package server

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config 房间模拟与服务进程的全部可调参数
type Config struct {
	WorldWidth            float64 `json:"worldWidth"`
	WorldHeight           float64 `json:"worldHeight"`
	PlayerRadius          float64 `json:"playerRadius"`
	SpeedPerTick          float64 `json:"speedPerTick"`
	KnockbackSpeedPerTick float64 `json:"knockbackSpeedPerTick"`
	BoostMagnitude        float64 `json:"boostMagnitude"`
	MaxBoost              float64 `json:"maxBoost"`
	BoostDepleteRate      float64 `json:"boostDepleteRate"`
	BoostRegenRate        float64 `json:"boostRegenRate"`
	KnockbackMagnitude    float64 `json:"knockbackMagnitude"`

	MaxHeartbeatInterval time.Duration `json:"maxHeartbeatInterval"`
	ClientUpdateInterval time.Duration `json:"clientUpdateInterval"` // 广播节奏
	TickRate             int           `json:"tickRate"`             // 每秒模拟次数

	AngleOffset   float64 `json:"angleOffset"`   // 展示层朝向偏移（角度制）
	RoundMovement bool    `json:"roundMovement"` // 目标点取整

	// 入站控制：每个玩家每 Tick 最多应用的意图数，以及调试用的网络延迟/丢包模拟
	MaxInputsPerTick int           `json:"maxInputsPerTick"`
	SimulateDelayMin time.Duration `json:"simulateDelayMin"`
	SimulateDelayMax time.Duration `json:"simulateDelayMax"`
	SimulateDropProb float64       `json:"simulateDropProb"`

	Port     int    `json:"port"`
	LogFile  string `json:"logFile"`
	LogLevel string `json:"logLevel"`
	// 日志滚动策略
	LogMaxSizeMB  int  `json:"logMaxSizeMB"`
	LogMaxBackups int  `json:"logMaxBackups"`
	LogMaxAgeDays int  `json:"logMaxAgeDays"`
	LogCompress   bool `json:"logCompress"`
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		WorldWidth:            2000,
		WorldHeight:           2000,
		PlayerRadius:          16,
		SpeedPerTick:          2.5,
		KnockbackSpeedPerTick: 10,
		BoostMagnitude:        2,
		MaxBoost:              100,
		BoostDepleteRate:      1,
		BoostRegenRate:        0.25,
		KnockbackMagnitude:    100,
		MaxHeartbeatInterval:  5 * time.Second,
		ClientUpdateInterval:  50 * time.Millisecond,
		TickRate:              60,
		MaxInputsPerTick:      8,
		Port:                  8080,
		LogFile:               "app.log",
		LogLevel:              "debug",
		LogMaxSizeMB:          10,
		LogMaxBackups:         3,
		LogMaxAgeDays:         7,
	}
}

// TickInterval 单个 Tick 的时长
func (c Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// Addr 监听地址，如 ":8080"
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate 一次性报告所有非法字段
func (c Config) Validate() error {
	var err error
	positive := func(name string, v float64) {
		if !(v > 0) || !isFinite(v) {
			err = multierr.Append(err, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || !isFinite(v) {
			err = multierr.Append(err, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	positive("worldWidth", c.WorldWidth)
	positive("worldHeight", c.WorldHeight)
	positive("playerRadius", c.PlayerRadius)
	positive("speedPerTick", c.SpeedPerTick)
	positive("knockbackSpeedPerTick", c.KnockbackSpeedPerTick)
	positive("boostMagnitude", c.BoostMagnitude)
	nonNegative("maxBoost", c.MaxBoost)
	nonNegative("boostDepleteRate", c.BoostDepleteRate)
	nonNegative("boostRegenRate", c.BoostRegenRate)
	nonNegative("knockbackMagnitude", c.KnockbackMagnitude)
	if !isFinite(c.AngleOffset) {
		err = multierr.Append(err, fmt.Errorf("angleOffset must be finite, got %v", c.AngleOffset))
	}
	if 2*c.PlayerRadius > c.WorldWidth || 2*c.PlayerRadius > c.WorldHeight {
		err = multierr.Append(err, fmt.Errorf("playerRadius %v does not fit a %vx%v world", c.PlayerRadius, c.WorldWidth, c.WorldHeight))
	}
	if c.MaxHeartbeatInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("maxHeartbeatInterval must be > 0, got %v", c.MaxHeartbeatInterval))
	}
	if c.ClientUpdateInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("clientUpdateInterval must be > 0, got %v", c.ClientUpdateInterval))
	}
	if c.TickRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("tickRate must be > 0, got %d", c.TickRate))
	}
	if c.MaxInputsPerTick <= 0 {
		err = multierr.Append(err, fmt.Errorf("maxInputsPerTick must be > 0, got %d", c.MaxInputsPerTick))
	}
	if c.SimulateDelayMin < 0 || c.SimulateDelayMax < c.SimulateDelayMin {
		err = multierr.Append(err, fmt.Errorf("simulated delay range [%v, %v] is invalid", c.SimulateDelayMin, c.SimulateDelayMax))
	}
	if !(c.SimulateDropProb >= 0 && c.SimulateDropProb <= 1) {
		err = multierr.Append(err, fmt.Errorf("simulateDropProb must be in [0, 1], got %v", c.SimulateDropProb))
	}
	if c.LogMaxSizeMB <= 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		err = multierr.Append(err, fmt.Errorf("log rotation needs maxSize > 0 and non-negative backups/age, got %d/%d/%d",
			c.LogMaxSizeMB, c.LogMaxBackups, c.LogMaxAgeDays))
	}
	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port out of range: %d", c.Port))
	}
	return err
}

// LoadConfig 默认值 → .env 文件 → ARENA_* 环境变量 → 命令行参数，后者覆盖前者
func LoadConfig(envFile string, args []string) (Config, error) {
	cfg := DefaultConfig()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return cfg, errors.Wrapf(err, "load env file %s", envFile)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("bumparena", flag.ContinueOnError)
	cfg.bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, errors.Wrap(err, "parse flags")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.Float64Var(&c.WorldWidth, "world-width", c.WorldWidth, "world width")
	fs.Float64Var(&c.WorldHeight, "world-height", c.WorldHeight, "world height")
	fs.Float64Var(&c.PlayerRadius, "player-radius", c.PlayerRadius, "player collision radius")
	fs.Float64Var(&c.SpeedPerTick, "speed", c.SpeedPerTick, "distance travelled per tick")
	fs.Float64Var(&c.KnockbackSpeedPerTick, "knockback-speed", c.KnockbackSpeedPerTick, "distance travelled per tick while knocked back")
	fs.Float64Var(&c.BoostMagnitude, "boost-magnitude", c.BoostMagnitude, "speed multiplier while boosting")
	fs.Float64Var(&c.MaxBoost, "max-boost", c.MaxBoost, "boost resource capacity")
	fs.Float64Var(&c.BoostDepleteRate, "boost-deplete", c.BoostDepleteRate, "boost consumed per tick while boosting")
	fs.Float64Var(&c.BoostRegenRate, "boost-regen", c.BoostRegenRate, "boost regenerated per tick while not boosting")
	fs.Float64Var(&c.KnockbackMagnitude, "knockback", c.KnockbackMagnitude, "knockback distance")
	fs.DurationVar(&c.MaxHeartbeatInterval, "heartbeat-timeout", c.MaxHeartbeatInterval, "kick players silent for longer than this")
	fs.DurationVar(&c.ClientUpdateInterval, "update-interval", c.ClientUpdateInterval, "snapshot broadcast interval")
	fs.IntVar(&c.TickRate, "tick-rate", c.TickRate, "simulation ticks per second")
	fs.Float64Var(&c.AngleOffset, "angle-offset", c.AngleOffset, "constant added to facing angle (degrees)")
	fs.BoolVar(&c.RoundMovement, "round-movement", c.RoundMovement, "round movement targets to whole units")
	fs.IntVar(&c.MaxInputsPerTick, "max-inputs-per-tick", c.MaxInputsPerTick, "intents applied per player per tick")
	fs.DurationVar(&c.SimulateDelayMin, "sim-delay-min", c.SimulateDelayMin, "simulated inbound delay lower bound")
	fs.DurationVar(&c.SimulateDelayMax, "sim-delay-max", c.SimulateDelayMax, "simulated inbound delay upper bound")
	fs.Float64Var(&c.SimulateDropProb, "sim-drop", c.SimulateDropProb, "simulated inbound drop probability")
	fs.IntVar(&c.Port, "port", c.Port, "listen port")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "log file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&c.LogMaxSizeMB, "log-max-size", c.LogMaxSizeMB, "log file size before rotation (MB)")
	fs.IntVar(&c.LogMaxBackups, "log-max-backups", c.LogMaxBackups, "rotated log files kept")
	fs.IntVar(&c.LogMaxAgeDays, "log-max-age", c.LogMaxAgeDays, "days to keep rotated log files")
	fs.BoolVar(&c.LogCompress, "log-compress", c.LogCompress, "gzip rotated log files")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var err error
	float := func(key string, dst *float64) {
		if s, ok := lookup(key); ok && s != "" {
			v, perr := strconv.ParseFloat(s, 64)
			if perr != nil {
				err = multierr.Append(err, errors.Wrapf(perr, "env %s", key))
				return
			}
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if s, ok := lookup(key); ok && s != "" {
			v, perr := strconv.Atoi(s)
			if perr != nil {
				err = multierr.Append(err, errors.Wrapf(perr, "env %s", key))
				return
			}
			*dst = v
		}
	}
	duration := func(key string, dst *time.Duration) {
		if s, ok := lookup(key); ok && s != "" {
			v, perr := time.ParseDuration(s)
			if perr != nil {
				err = multierr.Append(err, errors.Wrapf(perr, "env %s", key))
				return
			}
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if s, ok := lookup(key); ok && s != "" {
			v, perr := strconv.ParseBool(s)
			if perr != nil {
				err = multierr.Append(err, errors.Wrapf(perr, "env %s", key))
				return
			}
			*dst = v
		}
	}
	str := func(key string, dst *string) {
		if s, ok := lookup(key); ok && s != "" {
			*dst = s
		}
	}

	float("ARENA_WORLD_WIDTH", &c.WorldWidth)
	float("ARENA_WORLD_HEIGHT", &c.WorldHeight)
	float("ARENA_PLAYER_RADIUS", &c.PlayerRadius)
	float("ARENA_SPEED_PER_TICK", &c.SpeedPerTick)
	float("ARENA_KNOCKBACK_SPEED_PER_TICK", &c.KnockbackSpeedPerTick)
	float("ARENA_BOOST_MAGNITUDE", &c.BoostMagnitude)
	float("ARENA_MAX_BOOST", &c.MaxBoost)
	float("ARENA_BOOST_DEPLETE_RATE", &c.BoostDepleteRate)
	float("ARENA_BOOST_REGEN_RATE", &c.BoostRegenRate)
	float("ARENA_KNOCKBACK_MAGNITUDE", &c.KnockbackMagnitude)
	duration("ARENA_MAX_HEARTBEAT_INTERVAL", &c.MaxHeartbeatInterval)
	duration("ARENA_CLIENT_UPDATE_INTERVAL", &c.ClientUpdateInterval)
	integer("ARENA_TICK_RATE", &c.TickRate)
	float("ARENA_ANGLE_OFFSET", &c.AngleOffset)
	boolean("ARENA_ROUND_MOVEMENT", &c.RoundMovement)
	integer("ARENA_MAX_INPUTS_PER_TICK", &c.MaxInputsPerTick)
	duration("ARENA_SIMULATE_DELAY_MIN", &c.SimulateDelayMin)
	duration("ARENA_SIMULATE_DELAY_MAX", &c.SimulateDelayMax)
	float("ARENA_SIMULATE_DROP_PROB", &c.SimulateDropProb)
	integer("ARENA_PORT", &c.Port)
	str("ARENA_LOG_FILE", &c.LogFile)
	str("ARENA_LOG_LEVEL", &c.LogLevel)
	integer("ARENA_LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	integer("ARENA_LOG_MAX_BACKUPS", &c.LogMaxBackups)
	integer("ARENA_LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	boolean("ARENA_LOG_COMPRESS", &c.LogCompress)
	return err
}
