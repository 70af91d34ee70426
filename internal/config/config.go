// Package config provides Viper-based configuration loading for the realm server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/leveling"
	"github.com/cory-johannsen/realm/internal/game/party"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects the persistence backend: "standalone" keeps all state in
	// memory, "persistent" stores it in PostgreSQL.
	Mode string `mapstructure:"mode"`
	// Type is the server type identifier reported in logs.
	Type string `mapstructure:"type"`
}

// Persistent reports whether state is stored in PostgreSQL.
func (s ServerConfig) Persistent() bool { return s.Mode == "persistent" }

// DatabaseConfig holds PostgreSQL connection settings.
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

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds game server process settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC health service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC health service.
	GRPCPort int `mapstructure:"grpc_port"`
	// TickInterval is the period of the world tick loop.
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// CombatConfig holds the damage and reward balance values.
type CombatConfig struct {
	DefensePerLevel        float64 `mapstructure:"defense_per_level"`
	CritChance             float64 `mapstructure:"crit_chance"`
	CritMultiplier         float64 `mapstructure:"crit_multiplier"`
	DodgePerAgility        float64 `mapstructure:"dodge_per_agility"`
	MaxDodgeChance         float64 `mapstructure:"max_dodge_chance"`
	NpcDamagePerLevel      int     `mapstructure:"npc_damage_per_level"`
	NpcVarianceMin         float64 `mapstructure:"npc_variance_min"`
	NpcVarianceMax         float64 `mapstructure:"npc_variance_max"`
	NpcAgilityPerLevel     int     `mapstructure:"npc_agility_per_level"`
	ExpPerLevel            int     `mapstructure:"exp_per_level"`
	GoldPerLevel           int     `mapstructure:"gold_per_level"`
	GoldBonusMin           int     `mapstructure:"gold_bonus_min"`
	GoldBonusMax           int     `mapstructure:"gold_bonus_max"`
	WeaponReach            int     `mapstructure:"weapon_reach"`
	FallbackWeaponDamage   int     `mapstructure:"fallback_weapon_damage"`
	FallbackArmorReduction float64 `mapstructure:"fallback_armor_reduction"`
	MinDamage              int     `mapstructure:"min_damage"`
}

// Ruleset converts the section into the injected combat ruleset.
func (c CombatConfig) Ruleset() combat.Ruleset {
	return combat.Ruleset{
		DefensePerLevel:        c.DefensePerLevel,
		CritChance:             c.CritChance,
		CritMultiplier:         c.CritMultiplier,
		DodgePerAgility:        c.DodgePerAgility,
		MaxDodgeChance:         c.MaxDodgeChance,
		NpcDamagePerLevel:      c.NpcDamagePerLevel,
		NpcVarianceMin:         c.NpcVarianceMin,
		NpcVarianceMax:         c.NpcVarianceMax,
		NpcAgilityPerLevel:     c.NpcAgilityPerLevel,
		ExpPerLevel:            c.ExpPerLevel,
		GoldPerLevel:           c.GoldPerLevel,
		GoldBonusMin:           c.GoldBonusMin,
		GoldBonusMax:           c.GoldBonusMax,
		WeaponReach:            c.WeaponReach,
		FallbackWeaponDamage:   c.FallbackWeaponDamage,
		FallbackArmorReduction: c.FallbackArmorReduction,
		MinDamage:              c.MinDamage,
	}
}

// LevelingConfig holds the resource growth values and the level curve source.
type LevelingConfig struct {
	HPPerConstitution   int `mapstructure:"hp_per_constitution"`
	ManaPerIntelligence int `mapstructure:"mana_per_intelligence"`
	MinMaxHealth        int `mapstructure:"min_max_health"`
	MinMaxMana          int `mapstructure:"min_max_mana"`
	BaseStamina         int `mapstructure:"base_stamina"`
	StaminaPerLevel     int `mapstructure:"stamina_per_level"`
	// Curve selects the level curve: "default", "table" or "lua".
	Curve string `mapstructure:"curve"`
	// ScriptInstructionLimit bounds each Lua curve evaluation.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Rules converts the section into the injected leveling rules.
func (l LevelingConfig) Rules() leveling.Rules {
	return leveling.Rules{
		HPPerConstitution:   l.HPPerConstitution,
		ManaPerIntelligence: l.ManaPerIntelligence,
		MinMaxHealth:        l.MinMaxHealth,
		MinMaxMana:          l.MinMaxMana,
		BaseStamina:         l.BaseStamina,
		StaminaPerLevel:     l.StaminaPerLevel,
	}
}

// PartyConfig holds the group experience sharing values.
type PartyConfig struct {
	Exponent       float64 `mapstructure:"exponent"`
	MaxExpDistance float64 `mapstructure:"max_exp_distance"`
	MaxSize        int     `mapstructure:"max_size"`
	// Mode is "immediate" or "pooled".
	Mode string `mapstructure:"mode"`
}

// Rules converts the section into the injected party rules.
func (p PartyConfig) Rules() party.Rules {
	return party.Rules{
		Exponent:       p.Exponent,
		MaxExpDistance: p.MaxExpDistance,
		MaxSize:        p.MaxSize,
		Mode:           party.Mode(p.Mode),
	}
}

// DropsConfig holds ground drop placement settings.
type DropsConfig struct {
	// FreeTileBudget is the number of candidate tiles tried per drop.
	FreeTileBudget int `mapstructure:"free_tile_budget"`
	// GroundItemTTL is how long a drop stays on the ground; 0 keeps it forever.
	GroundItemTTL time.Duration `mapstructure:"ground_item_ttl"`
}

// ContentConfig holds the paths of the static game content.
type ContentConfig struct {
	NPCDir      string `mapstructure:"npc_dir"`
	ItemDir     string `mapstructure:"item_dir"`
	LootDir     string `mapstructure:"loot_dir"`
	MapDir      string `mapstructure:"map_dir"`
	SpawnFile   string `mapstructure:"spawn_file"`
	ExpTable    string `mapstructure:"exp_table"`
	CurveScript string `mapstructure:"curve_script"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Leveling   LevelingConfig   `mapstructure:"leveling"`
	Party      PartyConfig      `mapstructure:"party"`
	Drops      DropsConfig      `mapstructure:"drops"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Server.Persistent() {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Combat.Ruleset().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLeveling(c.Leveling, c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Party.Rules().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDrops(c.Drops); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "persistent": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, persistent], got %q", s.Mode)
	}
	if s.Type == "" {
		return errors.New("server.type must not be empty")
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

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("gameserver.tick_interval must be > 0 (got %s)", g.TickInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLeveling(l LevelingConfig, c ContentConfig) error {
	var errs []string
	if err := l.Rules().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch l.Curve {
	case "default":
	case "table":
		if c.ExpTable == "" {
			errs = append(errs, "content.exp_table must be set when leveling.curve is table")
		}
	case "lua":
		if c.CurveScript == "" {
			errs = append(errs, "content.curve_script must be set when leveling.curve is lua")
		}
		if l.ScriptInstructionLimit < 1 {
			errs = append(errs, "leveling.script_instruction_limit must be >= 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("leveling.curve must be one of [default, table, lua], got %q", l.Curve))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDrops(d DropsConfig) error {
	var errs []string
	if d.FreeTileBudget < 1 {
		errs = append(errs, fmt.Sprintf("drops.free_tile_budget must be >= 1, got %d", d.FreeTileBudget))
	}
	if d.GroundItemTTL < 0 {
		errs = append(errs, "drops.ground_item_ttl must not be negative")
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

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with REALM_ prefix
	v.SetEnvPrefix("REALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

// NewViper returns a Viper instance carrying every default.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.type", "realm")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "realm")
	v.SetDefault("database.password", "realm")
	v.SetDefault("database.name", "realm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.tick_interval", "500ms")

	rs := combat.DefaultRuleset()
	v.SetDefault("combat.defense_per_level", rs.DefensePerLevel)
	v.SetDefault("combat.crit_chance", rs.CritChance)
	v.SetDefault("combat.crit_multiplier", rs.CritMultiplier)
	v.SetDefault("combat.dodge_per_agility", rs.DodgePerAgility)
	v.SetDefault("combat.max_dodge_chance", rs.MaxDodgeChance)
	v.SetDefault("combat.npc_damage_per_level", rs.NpcDamagePerLevel)
	v.SetDefault("combat.npc_variance_min", rs.NpcVarianceMin)
	v.SetDefault("combat.npc_variance_max", rs.NpcVarianceMax)
	v.SetDefault("combat.npc_agility_per_level", rs.NpcAgilityPerLevel)
	v.SetDefault("combat.exp_per_level", rs.ExpPerLevel)
	v.SetDefault("combat.gold_per_level", rs.GoldPerLevel)
	v.SetDefault("combat.gold_bonus_min", rs.GoldBonusMin)
	v.SetDefault("combat.gold_bonus_max", rs.GoldBonusMax)
	v.SetDefault("combat.weapon_reach", rs.WeaponReach)
	v.SetDefault("combat.fallback_weapon_damage", rs.FallbackWeaponDamage)
	v.SetDefault("combat.fallback_armor_reduction", rs.FallbackArmorReduction)
	v.SetDefault("combat.min_damage", rs.MinDamage)

	lr := leveling.DefaultRules()
	v.SetDefault("leveling.hp_per_constitution", lr.HPPerConstitution)
	v.SetDefault("leveling.mana_per_intelligence", lr.ManaPerIntelligence)
	v.SetDefault("leveling.min_max_health", lr.MinMaxHealth)
	v.SetDefault("leveling.min_max_mana", lr.MinMaxMana)
	v.SetDefault("leveling.base_stamina", lr.BaseStamina)
	v.SetDefault("leveling.stamina_per_level", lr.StaminaPerLevel)
	v.SetDefault("leveling.curve", "default")
	v.SetDefault("leveling.script_instruction_limit", 100000)

	pr := party.DefaultRules()
	v.SetDefault("party.exponent", pr.Exponent)
	v.SetDefault("party.max_exp_distance", pr.MaxExpDistance)
	v.SetDefault("party.max_size", pr.MaxSize)
	v.SetDefault("party.mode", string(pr.Mode))

	v.SetDefault("drops.free_tile_budget", 9)
	v.SetDefault("drops.ground_item_ttl", "5m")

	v.SetDefault("content.npc_dir", "content/npcs")
	v.SetDefault("content.item_dir", "content/items")
	v.SetDefault("content.loot_dir", "content/loot")
	v.SetDefault("content.map_dir", "content/maps")
	v.SetDefault("content.spawn_file", "content/spawns.yaml")
	v.SetDefault("content.exp_table", "content/exp_table.toml")
	v.SetDefault("content.curve_script", "content/curve.lua")
}
