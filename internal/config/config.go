// Package config holds the settings shared by every veil command.
package config

import (
	"fmt"
	"os"

	"github.com/andresmejia3/veil/internal/region"
	"gopkg.in/yaml.v3"
)

// Config is read from an optional YAML file; command-line flags override it.
type Config struct {
	// CameraChannels are annotated in this order; the index is the camera number.
	CameraChannels []string `yaml:"camera_channels"`
	// PassthroughChannels are copied unchanged into the export. Everything
	// else that is not a camera is dropped.
	PassthroughChannels []string `yaml:"passthrough_channels"`

	DragThreshold int     `yaml:"drag_threshold"`
	ResizeStep    float64 `yaml:"resize_step"`
	Shape         string  `yaml:"shape"`
	BlurKernel    int     `yaml:"blur_kernel"`
	JPEGQuality   int     `yaml:"jpeg_quality"`

	Listen    string `yaml:"listen"`
	SaveDir   string `yaml:"save_dir"`
	ExportDir string `yaml:"export_dir"`
}

// Default returns the settings for the alphasense rig.
func Default() *Config {
	return &Config{
		CameraChannels: []string{
			"/alphasense_driver_ros/cam0/debayered/image/compressed",
			"/alphasense_driver_ros/cam1/debayered/image/compressed",
			"/alphasense_driver_ros/cam2/debayered/image/compressed",
		},
		PassthroughChannels: []string{
			"/alphasense_driver_ros/imu",
			"/hesai/pandar",
		},
		DragThreshold: 30,
		ResizeStep:    0.05,
		Shape:         region.DefaultShape.String(),
		BlurKernel:    region.DefaultKernel,
		JPEGQuality:   90,
		Listen:        "127.0.0.1:8080",
		SaveDir:       "saves",
		ExportDir:     "exports",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves cfg as YAML.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if len(c.CameraChannels) == 0 {
		return fmt.Errorf("at least one camera channel is required")
	}
	seen := make(map[string]bool)
	for _, ch := range append(append([]string(nil), c.CameraChannels...), c.PassthroughChannels...) {
		if ch == "" {
			return fmt.Errorf("channel names must not be empty")
		}
		if seen[ch] {
			return fmt.Errorf("channel '%s' is listed more than once", ch)
		}
		seen[ch] = true
	}
	if c.DragThreshold <= 0 {
		return fmt.Errorf("invalid drag threshold %d. Must be > 0", c.DragThreshold)
	}
	if c.ResizeStep <= 0 {
		return fmt.Errorf("invalid resize step %.3f. Must be > 0", c.ResizeStep)
	}
	if _, err := region.ParseShape(c.Shape); err != nil {
		return err
	}
	if c.BlurKernel <= 0 || c.BlurKernel%2 == 0 {
		return fmt.Errorf("invalid blur kernel %d. Must be a positive odd number", c.BlurKernel)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG quality %d. Must be between 1 and 100", c.JPEGQuality)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

// RegionShape returns the parsed Shape. Call Validate first.
func (c *Config) RegionShape() region.Shape {
	s, err := region.ParseShape(c.Shape)
	if err != nil {
		return region.DefaultShape
	}
	return s
}
