// Package particles describes the decorative particle background drawn behind
// the form. The server never animates anything itself: it owns the
// configuration and hands it to the browser-side tsParticles engine.
package particles

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Options mirrors the subset of the tsParticles option tree the page uses
type Options struct {
	FullScreen    FullScreen    `json:"fullScreen" yaml:"fullScreen"`
	Background    Background    `json:"background" yaml:"background"`
	Particles     Particles     `json:"particles" yaml:"particles"`
	Interactivity Interactivity `json:"interactivity" yaml:"interactivity"`
}

type FullScreen struct {
	Enable bool `json:"enable" yaml:"enable"`
	ZIndex int  `json:"zIndex" yaml:"zIndex"`
}

type Background struct {
	Color ColorValue `json:"color" yaml:"color"`
}

type ColorValue struct {
	Value string `json:"value" yaml:"value"`
}

type Particles struct {
	Color   ColorValue `json:"color" yaml:"color"`
	Links   Links      `json:"links" yaml:"links"`
	Move    Move       `json:"move" yaml:"move"`
	Number  Number     `json:"number" yaml:"number"`
	Opacity Value      `json:"opacity" yaml:"opacity"`
	Size    Size       `json:"size" yaml:"size"`
	Shadow  Shadow     `json:"shadow" yaml:"shadow"`
}

type Links struct {
	Enable   bool    `json:"enable" yaml:"enable"`
	Color    string  `json:"color" yaml:"color"`
	Distance float64 `json:"distance" yaml:"distance"`
	Opacity  float64 `json:"opacity" yaml:"opacity"`
	Width    float64 `json:"width" yaml:"width"`
}

type Move struct {
	Enable    bool     `json:"enable" yaml:"enable"`
	Speed     float64  `json:"speed" yaml:"speed"`
	Direction string   `json:"direction" yaml:"direction"`
	OutModes  OutModes `json:"outModes" yaml:"outModes"`
}

type OutModes struct {
	Default string `json:"default" yaml:"default"`
}

type Number struct {
	Value   int     `json:"value" yaml:"value"`
	Density Density `json:"density" yaml:"density"`
}

type Density struct {
	Enable bool `json:"enable" yaml:"enable"`
}

type Value struct {
	Value float64 `json:"value" yaml:"value"`
}

type Size struct {
	Value Range `json:"value" yaml:"value"`
}

type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type Shadow struct {
	Enable bool    `json:"enable" yaml:"enable"`
	Color  string  `json:"color" yaml:"color"`
	Blur   float64 `json:"blur" yaml:"blur"`
}

type Interactivity struct {
	Events Events `json:"events" yaml:"events"`
	Modes  Modes  `json:"modes" yaml:"modes"`
}

type Events struct {
	OnHover OnHover `json:"onHover" yaml:"onHover"`
}

type OnHover struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Mode   string `json:"mode" yaml:"mode"`
}

type Modes struct {
	Repulse Repulse `json:"repulse" yaml:"repulse"`
}

type Repulse struct {
	Distance float64 `json:"distance" yaml:"distance"`
}

// Default returns the stock background: 100 white linked particles that
// bounce off the edges and scatter from the pointer.
func Default() Options {
	return Options{
		FullScreen: FullScreen{Enable: true, ZIndex: -1},
		Background: Background{Color: ColorValue{Value: "#0e0e0e"}},
		Particles: Particles{
			Color: ColorValue{Value: "#ffffff"},
			Links: Links{
				Enable:   true,
				Color:    "#ffffff",
				Distance: 150,
				Opacity:  0.6,
				Width:    1.5,
			},
			Move: Move{
				Enable:    true,
				Speed:     2,
				Direction: "none",
				OutModes:  OutModes{Default: "bounce"},
			},
			Number:  Number{Value: 100, Density: Density{Enable: true}},
			Opacity: Value{Value: 0.5},
			Size:    Size{Value: Range{Min: 2, Max: 5}},
			Shadow:  Shadow{Enable: true, Color: "#ffffff", Blur: 2},
		},
		Interactivity: Interactivity{
			Events: Events{OnHover: OnHover{Enable: true, Mode: "repulse"}},
			Modes:  Modes{Repulse: Repulse{Distance: 120}},
		},
	}
}

// LoadFile overlays the YAML document at path on the defaults. Keys missing
// from the file keep their default values.
func LoadFile(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("error reading particles config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Default(), fmt.Errorf("error parsing particles config: %w", err)
	}
	return opts, nil
}

// Engine is the process-wide background: loaded on first use and kept for
// the life of the process. Re-initializing is a no-op.
type Engine struct {
	path string

	once    sync.Once
	opts    Options
	payload []byte
	err     error
}

// NewEngine returns an engine that reads path on Init, or uses the defaults
// when path is empty
func NewEngine(path string) *Engine {
	return &Engine{path: path}
}

// Init loads the configuration once. A config file that cannot be read,
// parsed or encoded falls back to the defaults and the error is reported on
// every call.
func (e *Engine) Init() (Options, error) {
	e.once.Do(func() {
		e.opts = Default()
		if e.path != "" {
			e.opts, e.err = LoadFile(e.path)
		}
		payload, err := json.Marshal(e.opts)
		if err != nil {
			e.err = fmt.Errorf("error encoding particles config: %w", err)
			e.opts = Default()
			if payload, err = json.Marshal(e.opts); err != nil {
				return
			}
		}
		e.payload = payload
	})
	return e.opts, e.err
}

// JSON returns the client-side configuration document. It only fails when
// not even the defaults could be encoded.
func (e *Engine) JSON() ([]byte, error) {
	_, err := e.Init()
	if e.payload == nil {
		return nil, fmt.Errorf("no particles config to serve: %w", err)
	}
	return e.payload, nil
}
