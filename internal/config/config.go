// Package config carries the solver tunables. The penalty weights and hour
// bands were historically hand-tuned constants inside the algorithm; they are
// surfaced here as named parameters so deployments can override them from a
// YAML file without touching the model builder.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Band describes a soft-bounded constraint: values outside
// [HardMin, HardMax] are infeasible, values outside [SoftMin, SoftMax] cost
// penalty x |delta| in the objective.
type Band struct {
	HardMin int `yaml:"hardMin" validate:"min=0"`
	SoftMin int `yaml:"softMin" validate:"min=0"`
	MinCost int `yaml:"minCost" validate:"min=0"`
	SoftMax int `yaml:"softMax" validate:"min=0"`
	HardMax int `yaml:"hardMax" validate:"min=0"`
	MaxCost int `yaml:"maxCost" validate:"min=0"`
}

// Config is the full set of scheduling tunables.
type Config struct {
	// MinRestGapMinutes is the legal minimum rest between the end of one
	// shift and the start of the next on the following day.
	MinRestGapMinutes int `yaml:"minRestGapMinutes" validate:"min=0"`

	// RestSequence bounds runs of consecutive free days between work blocks.
	RestSequence Band `yaml:"restSequence"`

	// WeeklyRest bounds the number of free days per billing week.
	WeeklyRest Band `yaml:"weeklyRest"`

	// OvernightSequence bounds runs of consecutive overnight shifts.
	OvernightSequence Band `yaml:"overnightSequence"`

	// OvernightWeekly bounds the number of overnight shifts per billing week.
	OvernightWeekly Band `yaml:"overnightWeekly"`

	// Monthly work-time band costs. The bounds themselves are derived per
	// employee from contracted hours and the demand multipliers.
	WorkTimeMinCost       int `yaml:"workTimeMinCost" validate:"min=0"`
	WorkTimeMaxCost       int `yaml:"workTimeMaxCost" validate:"min=0"`
	FullTimerMinCostBonus int `yaml:"fullTimerMinCostBonus" validate:"min=0"`

	// HourQuantum is the rounding multiple for the derived hour bounds.
	HourQuantum int `yaml:"hourQuantum" validate:"min=1"`

	// ExcessCoverPenalty is the objective cost per employee assigned above a
	// shift's cover demand.
	ExcessCoverPenalty int `yaml:"excessCoverPenalty" validate:"min=0"`

	// PreferenceWeight is the objective coefficient for a fulfilled employee
	// preference; negative values reward fulfilment.
	PreferenceWeight int `yaml:"preferenceWeight" validate:"max=0"`

	// TransitionPenalty is the cost of an illegal shift-to-shift transition;
	// zero forbids the transition outright.
	TransitionPenalty int `yaml:"transitionPenalty" validate:"min=0"`

	// Free-Sunday rules: employees get at least FreeSundays free Sundays per
	// month, reduced to FreeSundaysWithOvertime once their target exceeds
	// their contracted hours. Violations cost FreeSundayCost per Sunday.
	FreeSundays             int `yaml:"freeSundays" validate:"min=0"`
	FreeSundaysWithOvertime int `yaml:"freeSundaysWithOvertime" validate:"min=0"`
	FreeSundayCost          int `yaml:"freeSundayCost" validate:"min=0"`

	// FallbackBaselineHours is used when the caller supplies no full-time
	// baseline for the month. Hitting it signals a data-configuration gap
	// upstream and is logged accordingly.
	FallbackBaselineHours int `yaml:"fallbackBaselineHours" validate:"min=1"`

	// SolveTimeLimit is the wall-clock budget handed to the solver. The GLPK
	// binding exposes no MIP time limit, so the budget is advisory; callers
	// needing a hard limit run the solve in a worker they can kill.
	SolveTimeLimit time.Duration `yaml:"solveTimeLimit" validate:"min=0"`
}

var validate = validator.New()

// Default returns the tunables with the historically used values.
func Default() *Config {
	return &Config{
		MinRestGapMinutes: 11 * 60,
		// Rest blocks of one or two days are ideal; longer blocks are
		// penalized per extra day and capped at a week so part-timers with
		// sparse schedules stay feasible.
		RestSequence: Band{HardMin: 1, SoftMin: 1, MinCost: 0, SoftMax: 2, HardMax: 7, MaxCost: 2},
		// At least one free day per billing week, ideally two.
		WeeklyRest: Band{HardMin: 1, SoftMin: 2, MinCost: 7, SoftMax: 2, HardMax: 7, MaxCost: 4},
		// Two or three consecutive overnight shifts; one or four tolerated.
		OvernightSequence: Band{HardMin: 1, SoftMin: 2, MinCost: 20, SoftMax: 3, HardMax: 4, MaxCost: 5},
		// At most four overnight shifts per billing week.
		OvernightWeekly: Band{HardMin: 0, SoftMin: 1, MinCost: 2, SoftMax: 3, HardMax: 4, MaxCost: 0},

		WorkTimeMinCost:       50,
		WorkTimeMaxCost:       50,
		FullTimerMinCostBonus: 25,
		HourQuantum:           8,

		ExcessCoverPenalty: 100,
		PreferenceWeight:   -1,
		TransitionPenalty:  0,

		FreeSundays:             2,
		FreeSundaysWithOvertime: 1,
		FreeSundayCost:          10,

		FallbackBaselineHours: 160,
		SolveTimeLimit:        60 * time.Second,
	}
}

// Load reads tunable overrides from the given YAML file on top of the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tunables for internal consistency.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for name, band := range map[string]Band{
		"restSequence":      cfg.RestSequence,
		"weeklyRest":        cfg.WeeklyRest,
		"overnightSequence": cfg.OvernightSequence,
		"overnightWeekly":   cfg.OvernightWeekly,
	} {
		if err := checkBand(band); err != nil {
			return fmt.Errorf("invalid %s band: %w", name, err)
		}
	}
	return nil
}

func checkBand(b Band) error {
	if b.HardMin > b.SoftMin || b.SoftMin > b.SoftMax || b.SoftMax > b.HardMax {
		return fmt.Errorf("bounds must satisfy hardMin <= softMin <= softMax <= hardMax, got %d/%d/%d/%d",
			b.HardMin, b.SoftMin, b.SoftMax, b.HardMax)
	}
	return nil
}
