// Package galvo drives a galvanometer-based LMC laser marking controller
// over USB. The Controller translates drawing intents (jump, mark, light
// moves, dwells, GPIO toggles) into the board's 12-byte command words,
// batches list commands into 0xC00-byte packets, and sequences them with
// the realtime single commands the hardware requires.
package galvo

import (
	"fmt"

	"github.com/spf13/viper"
)

// Laser source types. The source decides which parameter words a set()
// emits: Q-switch period and mark current for fiber, mark frequency and
// power ratio for CO2.
const (
	SourceFiber = "fiber"
	SourceCO2   = "co2"
)

// Config holds every construction-time parameter of a Controller. Keys
// absent from a settings file keep their defaults.
type Config struct {
	// Initial pen position in galvo units.
	X int `json:"x" mapstructure:"x"`
	Y int `json:"y" mapstructure:"y"`

	// Laser parameters
	MarkSpeed   float64 `json:"mark_speed" mapstructure:"mark_speed"`     // mm/s
	TravelSpeed float64 `json:"travel_speed" mapstructure:"travel_speed"` // mm/s
	Power       float64 `json:"power" mapstructure:"power"`               // percent
	Frequency   float64 `json:"frequency" mapstructure:"frequency"`       // kHz
	GalvosPerMM float64 `json:"galvos_per_mm" mapstructure:"galvos_per_mm"`
	Source      string  `json:"source" mapstructure:"source"`
	FPK         float64 `json:"fpk" mapstructure:"fpk"` // CO2 first-pulse-killer, percent

	// Optional speeds; nil leaves the current travel speed alone.
	GotoSpeed  *float64 `json:"goto_speed" mapstructure:"goto_speed"`
	LightSpeed *float64 `json:"light_speed" mapstructure:"light_speed"`
	DarkSpeed  *float64 `json:"dark_speed" mapstructure:"dark_speed"`
	PulseWidth *float64 `json:"pulse_width" mapstructure:"pulse_width"` // 4 is a typical value

	// Pins
	LightPin int `json:"light_pin" mapstructure:"light_pin"`
	FootPin  int `json:"foot_pin" mapstructure:"foot_pin"`
	LaserPin int `json:"laser_pin" mapstructure:"laser_pin"`

	// Timing and delay parameters, microseconds unless noted.
	DelayLaserOn   float64 `json:"delay_laser_on" mapstructure:"delay_laser_on"`
	DelayLaserOff  float64 `json:"delay_laser_off" mapstructure:"delay_laser_off"`
	DelayPolygon   float64 `json:"delay_polygon" mapstructure:"delay_polygon"`
	DelayEnd       float64 `json:"delay_end" mapstructure:"delay_end"`
	DelayOpenMO    float64 `json:"delay_open_mo" mapstructure:"delay_open_mo"` // ms
	DelayJumpShort float64 `json:"delay_jump_short" mapstructure:"delay_jump_short"`
	DelayJumpLong  float64 `json:"delay_jump_long" mapstructure:"delay_jump_long"`

	// Board init parameters
	CorFile          string `json:"cor_file" mapstructure:"cor_file"`
	FirstPulseKiller uint16 `json:"first_pulse_killer" mapstructure:"first_pulse_killer"`
	PwmPulseWidth    uint16 `json:"pwm_pulse_width" mapstructure:"pwm_pulse_width"`
	PwmHalfPeriod    uint16 `json:"pwm_half_period" mapstructure:"pwm_half_period"`
	StandbyParam1    uint16 `json:"standby_param_1" mapstructure:"standby_param_1"`
	StandbyParam2    uint16 `json:"standby_param_2" mapstructure:"standby_param_2"`
	TimingMode       uint16 `json:"timing_mode" mapstructure:"timing_mode"`
	DelayMode        uint16 `json:"delay_mode" mapstructure:"delay_mode"`
	LaserMode        uint16 `json:"laser_mode" mapstructure:"laser_mode"`
	ControlMode      uint16 `json:"control_mode" mapstructure:"control_mode"`
	FpkMaxVoltage    uint16 `json:"fpk2_max_voltage" mapstructure:"fpk2_max_voltage"`
	FpkMinVoltage    uint16 `json:"fpk2_min_voltage" mapstructure:"fpk2_min_voltage"`
	FpkT1            uint16 `json:"fpk2_t1" mapstructure:"fpk2_t1"`
	FpkT2            uint16 `json:"fpk2_t2" mapstructure:"fpk2_t2"`
	FlyResolution1   uint16 `json:"fly_resolution_1" mapstructure:"fly_resolution_1"`
	FlyResolution2   uint16 `json:"fly_resolution_2" mapstructure:"fly_resolution_2"`
	FlyResolution3   uint16 `json:"fly_resolution_3" mapstructure:"fly_resolution_3"`
	FlyResolution4   uint16 `json:"fly_resolution_4" mapstructure:"fly_resolution_4"`

	// Behavior
	InputPassesRequired int  `json:"input_passes_required" mapstructure:"input_passes_required"`
	MachineIndex        int  `json:"machine_index" mapstructure:"machine_index"`
	Mock                bool `json:"mock" mapstructure:"mock"`
}

// DefaultConfig returns the parameter set of a stock fiber-source board.
func DefaultConfig() *Config {
	return &Config{
		X:                   0x8000,
		Y:                   0x8000,
		MarkSpeed:           100.0,
		TravelSpeed:         2000.0,
		Power:               50.0,
		Frequency:           30.0,
		GalvosPerMM:         500,
		Source:              SourceFiber,
		FPK:                 10.0,
		LightPin:            8,
		FootPin:             15,
		LaserPin:            0,
		DelayLaserOn:        100.0,
		DelayLaserOff:       100.0,
		DelayPolygon:        100.0,
		DelayEnd:            300.0,
		DelayOpenMO:         8.0,
		DelayJumpShort:      8,
		DelayJumpLong:       200.0,
		FirstPulseKiller:    200,
		PwmPulseWidth:       125,
		PwmHalfPeriod:       125,
		StandbyParam1:       2000,
		StandbyParam2:       20,
		TimingMode:          1,
		DelayMode:           1,
		LaserMode:           1,
		ControlMode:         0,
		FpkMaxVoltage:       0xFFB,
		FpkMinVoltage:       1,
		FpkT1:               409,
		FpkT2:               100,
		FlyResolution1:      0,
		FlyResolution2:      99,
		FlyResolution3:      1000,
		FlyResolution4:      25,
		InputPassesRequired: 3,
	}
}

// LoadConfig builds a Config from defaults overlaid with the optional
// JSON settings file. Only keys present in the file are overridden.
func LoadConfig(settingsFile string) (*Config, error) {
	cfg := DefaultConfig()
	if settingsFile == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(settingsFile)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", settingsFile, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", settingsFile, err)
	}
	return cfg, nil
}
