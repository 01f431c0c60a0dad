// Package config provides Viper-based configuration loading for the Dream Realm runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the save repository.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds the settings of the multi-player telnet front end.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File receives log output; empty writes to stderr so the game console stays clean.
	File string `mapstructure:"file"`
}

// StorageConfig selects where saved games live.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend"`
	// Dir is the save directory used by the file backend.
	Dir string `mapstructure:"dir"`
	// Slot is the save slot used when none is given on the command line.
	Slot string `mapstructure:"slot"`
}

// ContentConfig locates the YAML content tree and Lua scripts.
type ContentConfig struct {
	Dir        string `mapstructure:"dir"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// FallbackEnding is returned when no ending rule matches.
	FallbackEnding string `mapstructure:"fallback_ending"`
}

// DamageConfig holds the damage formula coefficients.
type DamageConfig struct {
	LevelBonus       float64 `mapstructure:"level_bonus"`
	Weakness         float64 `mapstructure:"weakness"`
	Resist           float64 `mapstructure:"resist"`
	Neutral          float64 `mapstructure:"neutral"`
	SkillSpreadMin   float64 `mapstructure:"skill_spread_min"`
	SkillSpreadWidth float64 `mapstructure:"skill_spread_width"`
	EnemySpreadMin   float64 `mapstructure:"enemy_spread_min"`
	EnemySpreadWidth float64 `mapstructure:"enemy_spread_width"`
}

// VictoryConfig holds the rewards granted when an enemy is saved.
type VictoryConfig struct {
	BaseExperience int `mapstructure:"base_experience"`
	// HPDivisor divides the enemy max HP into the experience bonus.
	HPDivisor int `mapstructure:"hp_divisor"`
	Hope      int `mapstructure:"hope"`
	Empathy   int `mapstructure:"empathy"`
}

// DefeatConfig holds the emotion penalty applied when the player falls.
type DefeatConfig struct {
	Despair    int `mapstructure:"despair"`
	Loneliness int `mapstructure:"loneliness"`
	Hope       int `mapstructure:"hope"`
}

// TimeoutConfig holds the consolation reward when the turn limit is reached.
type TimeoutConfig struct {
	Experience int `mapstructure:"experience"`
}

// AIConfig holds the thresholds of the built-in enemy behavior.
type AIConfig struct {
	SpecialBelow    float64 `mapstructure:"special_below"`
	SpecialChance   float64 `mapstructure:"special_chance"`
	PowerAbove      float64 `mapstructure:"power_above"`
	PowerChance     float64 `mapstructure:"power_chance"`
	PowerMultiplier float64 `mapstructure:"power_multiplier"`
}

// BattleConfig holds every tunable of the battle loop.
type BattleConfig struct {
	MaxActionPoints int           `mapstructure:"max_action_points"`
	MaxTurns        int           `mapstructure:"max_turns"`
	Damage          DamageConfig  `mapstructure:"damage"`
	Victory         VictoryConfig `mapstructure:"victory"`
	Defeat          DefeatConfig  `mapstructure:"defeat"`
	Timeout         TimeoutConfig `mapstructure:"timeout"`
	AI              AIConfig      `mapstructure:"ai"`
}

// NewGameConfig holds the starting player values.
type NewGameConfig struct {
	Name             string         `mapstructure:"name"`
	MaxHP            int            `mapstructure:"max_hp"`
	MaxMP            int            `mapstructure:"max_mp"`
	ExperienceToNext int            `mapstructure:"experience_to_next"`
	UnlockedSkills   []string       `mapstructure:"unlocked_skills"`
	Items            map[string]int `mapstructure:"items"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Content  ContentConfig  `mapstructure:"content"`
	Battle   BattleConfig   `mapstructure:"battle"`
	NewGame  NewGameConfig  `mapstructure:"newgame"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	// The database section only matters when saves go to PostgreSQL.
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateNewGame(c.NewGame); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	switch s.Backend {
	case "file":
		if s.Dir == "" {
			errs = append(errs, "storage.dir must not be empty for the file backend")
		}
	case "postgres":
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [file, postgres], got %q", s.Backend))
	}
	if s.Slot == "" {
		errs = append(errs, "storage.slot must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 || t.WriteTimeout < 0 {
		errs = append(errs, "telnet timeouts must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}
	if c.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.instruction_limit must be >= 0, got %d", c.InstructionLimit))
	}
	if c.FallbackEnding == "" {
		errs = append(errs, "content.fallback_ending must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.MaxActionPoints < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_action_points must be >= 1, got %d", b.MaxActionPoints))
	}
	if b.MaxTurns < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_turns must be >= 1, got %d", b.MaxTurns))
	}
	if b.Damage.SkillSpreadMin < 0 || b.Damage.SkillSpreadWidth < 0 {
		errs = append(errs, "battle.damage skill spread must not be negative")
	}
	if b.Damage.EnemySpreadMin < 0 || b.Damage.EnemySpreadWidth < 0 {
		errs = append(errs, "battle.damage enemy spread must not be negative")
	}
	if b.Damage.Weakness < 0 || b.Damage.Resist < 0 || b.Damage.Neutral < 0 {
		errs = append(errs, "battle.damage multipliers must not be negative")
	}
	if b.Victory.HPDivisor < 1 {
		errs = append(errs, fmt.Sprintf("battle.victory.hp_divisor must be >= 1, got %d", b.Victory.HPDivisor))
	}
	for name, p := range map[string]float64{
		"battle.ai.special_chance": b.AI.SpecialChance,
		"battle.ai.power_chance":   b.AI.PowerChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0, 1], got %g", name, p))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNewGame(n NewGameConfig) error {
	var errs []string
	if n.MaxHP < 1 {
		errs = append(errs, fmt.Sprintf("newgame.max_hp must be >= 1, got %d", n.MaxHP))
	}
	if n.MaxMP < 0 {
		errs = append(errs, fmt.Sprintf("newgame.max_mp must be >= 0, got %d", n.MaxMP))
	}
	if n.ExperienceToNext < 1 {
		errs = append(errs, fmt.Sprintf("newgame.experience_to_next must be >= 1, got %d", n.ExperienceToNext))
	}
	for id, count := range n.Items {
		if count < 0 {
			errs = append(errs, fmt.Sprintf("newgame.items.%s must be >= 0, got %d", id, count))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DREAM_ prefix
	v.SetEnvPrefix("DREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic("config: defaults failed validation: " + err.Error())
	}
	return cfg
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dream")
	v.SetDefault("database.password", "dream")
	v.SetDefault("database.name", "dream")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "saves")
	v.SetDefault("storage.slot", "default")

	v.SetDefault("telnet.host", "127.0.0.1")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "30m")
	v.SetDefault("telnet.write_timeout", "10s")

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.instruction_limit", 0)
	v.SetDefault("content.fallback_ending", "end_renewal")

	v.SetDefault("battle.max_action_points", 3)
	v.SetDefault("battle.max_turns", 10)
	v.SetDefault("battle.damage.level_bonus", 0.1)
	v.SetDefault("battle.damage.weakness", 1.5)
	v.SetDefault("battle.damage.resist", 0.5)
	v.SetDefault("battle.damage.neutral", 1.0)
	v.SetDefault("battle.damage.skill_spread_min", 0.9)
	v.SetDefault("battle.damage.skill_spread_width", 0.2)
	v.SetDefault("battle.damage.enemy_spread_min", 0.8)
	v.SetDefault("battle.damage.enemy_spread_width", 0.4)
	v.SetDefault("battle.victory.base_experience", 50)
	v.SetDefault("battle.victory.hp_divisor", 4)
	v.SetDefault("battle.victory.hope", 15)
	v.SetDefault("battle.victory.empathy", 10)
	v.SetDefault("battle.defeat.despair", 10)
	v.SetDefault("battle.defeat.loneliness", 5)
	v.SetDefault("battle.defeat.hope", -5)
	v.SetDefault("battle.timeout.experience", 20)
	v.SetDefault("battle.ai.special_below", 0.3)
	v.SetDefault("battle.ai.special_chance", 0.7)
	v.SetDefault("battle.ai.power_above", 0.8)
	v.SetDefault("battle.ai.power_chance", 0.5)
	v.SetDefault("battle.ai.power_multiplier", 1.2)

	v.SetDefault("newgame.name", "Nozomi Yumeno")
	v.SetDefault("newgame.max_hp", 100)
	v.SetDefault("newgame.max_mp", 50)
	v.SetDefault("newgame.experience_to_next", 100)
	v.SetDefault("newgame.unlocked_skills", []string{"mem_childhood"})
	v.SetDefault("newgame.items", map[string]int{
		"hope_fragment":  3,
		"memory_crystal": 1,
		"healing_potion": 2,
	})
}
