package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration file.
 *
 * Description:	Everything can also be given on the command line,
 *		which wins.  Example:
 *
 *		station:
 *		  name: EPWA-1
 *		  lat: 52.17
 *		  lon: 20.97
 *		timestamp_format: "%Y-%m-%d %H:%M:%S %Z"
 *		outputs:
 *		  - format: text
 *		    sink: stdout
 *		  - format: json
 *		    sink: tcp
 *		    port: 5555
 *		metrics:
 *		  listen: ":9110"
 *		filter:
 *		  no_empty: true
 *		  stations: [ "10A1B2" ]
 *
 *------------------------------------------------------------------*/

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const DEFAULT_TIMESTAMP_FORMAT = "%Y-%m-%d %H:%M:%S %Z"

var ErrConfig = errors.New("invalid configuration")

type StationConfig struct {
	Name string   `yaml:"name"`
	Lat  *float64 `yaml:"lat"`
	Lon  *float64 `yaml:"lon"`
}

type OutputConfig struct {
	Format string `yaml:"format"` // text or json
	Sink   string `yaml:"sink"`   // stdout, file or tcp
	Path   string `yaml:"path"`   // file
	Port   int    `yaml:"port"`   // tcp
	DNSSD  string `yaml:"dns_sd"` // tcp, service name to announce, "default" for the usual one.  Empty for none.
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type DecoderConfig struct {
	MaxFrameLength          int `yaml:"max_frame_length"`
	MaxFrameLengthCorrected int `yaml:"max_frame_length_corrected"`
}

type FilterConfig struct {
	NoEmpty   bool     `yaml:"no_empty"`
	Stations  []string `yaml:"stations"`
	ACARSOnly bool     `yaml:"acars_only"`
}

type Config struct {
	Station         StationConfig  `yaml:"station"`
	TimestampFormat string         `yaml:"timestamp_format"`
	LogLevel        int            `yaml:"log_level"`
	Outputs         []OutputConfig `yaml:"outputs"`
	Metrics         MetricsConfig  `yaml:"metrics"`
	Decoder         DecoderConfig  `yaml:"decoder"`
	Filter          FilterConfig   `yaml:"filter"`
}

func DefaultConfig() *Config {
	return &Config{ //nolint:exhaustruct
		TimestampFormat: DEFAULT_TIMESTAMP_FORMAT,
		LogLevel:        1,
		Decoder: DecoderConfig{
			MaxFrameLength:          MAX_FRAME_LENGTH,
			MaxFrameLengthCorrected: MAX_FRAME_LENGTH_CORRECTED,
		},
	}
}

// Tried in order when no file is named.

var config_search_locations = []string{
	"husky.yaml",
	"/usr/local/etc/husky.yaml",
	"/etc/husky.yaml",
}

/*------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Read the configuration file.
 *
 * Inputs:	path	- File name.  Empty means look in the usual
 *			  places, and use the defaults if there is
 *			  nothing there.
 *
 *------------------------------------------------------------------*/

func LoadConfig(path string) (*Config, error) {
	if path != "" {
		var data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		return ParseConfig(data)
	}

	for _, location := range config_search_locations {
		var data, err = os.ReadFile(location)
		if err == nil {
			logger.Info("Using config file", "path", location)
			return ParseConfig(data)
		}
	}

	return DefaultConfig(), nil
}

func ParseConfig(data []byte) (*Config, error) {
	var c = DefaultConfig()

	var dec = yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) Validate() error {
	if (c.Station.Lat == nil) != (c.Station.Lon == nil) {
		return fmt.Errorf("%w: station needs both lat and lon", ErrConfig)
	}
	if c.Station.Lat != nil && (*c.Station.Lat < -90 || *c.Station.Lat > 90 || *c.Station.Lon < -180 || *c.Station.Lon > 180) {
		return fmt.Errorf("%w: station location out of range", ErrConfig)
	}

	if c.Decoder.MaxFrameLength <= 0 || c.Decoder.MaxFrameLength >= 1<<HDR_TRLEN {
		return fmt.Errorf("%w: max_frame_length %d", ErrConfig, c.Decoder.MaxFrameLength)
	}
	if c.Decoder.MaxFrameLengthCorrected <= 0 || c.Decoder.MaxFrameLengthCorrected > c.Decoder.MaxFrameLength {
		return fmt.Errorf("%w: max_frame_length_corrected %d", ErrConfig, c.Decoder.MaxFrameLengthCorrected)
	}

	for i, o := range c.Outputs {
		switch o.Format {
		case "text", "json":
		default:
			return fmt.Errorf("%w: output %d: format %q", ErrConfig, i+1, o.Format)
		}

		switch o.Sink {
		case "stdout":
		case "file":
			if o.Path == "" {
				return fmt.Errorf("%w: output %d: file needs a path", ErrConfig, i+1)
			}
		case "tcp":
			if o.Port <= 0 || o.Port > 65535 {
				return fmt.Errorf("%w: output %d: port %d", ErrConfig, i+1, o.Port)
			}
		default:
			return fmt.Errorf("%w: output %d: sink %q", ErrConfig, i+1, o.Sink)
		}
	}

	if _, err := c.Filter.StationIDs(); err != nil {
		return err
	}

	return nil
}

// Station filter as 24 bit addresses.

func (f FilterConfig) StationIDs() ([]uint32, error) {
	var ids = make([]uint32, 0, len(f.Stations))
	for _, s := range f.Stations {
		var v, err = strconv.ParseUint(s, 16, 32)
		if err != nil || v > 0xffffff {
			return nil, fmt.Errorf("%w: station id %q is not 6 hex digits", ErrConfig, s)
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}

func (c *Config) StationLocation() *GeoPoint {
	if c.Station.Lat == nil || c.Station.Lon == nil {
		return nil
	}
	return &GeoPoint{Lat: *c.Station.Lat, Lon: *c.Station.Lon}
}
