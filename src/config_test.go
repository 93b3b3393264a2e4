package vdl2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
station:
  name: EPWA-1
  lat: 52.17
  lon: 20.97
timestamp_format: "%H:%M:%S"
log_level: 2
outputs:
  - format: text
    sink: stdout
  - format: json
    sink: tcp
    port: 5555
    dns_sd: default
  - format: json
    sink: file
    path: /tmp/vdl2.json
metrics:
  listen: ":9110"
decoder:
  max_frame_length: 4000
  max_frame_length_corrected: 2000
filter:
  no_empty: true
  stations: [ "10A1B2", "4ca9b1" ]
  acars_only: true
`

func TestParseConfig(t *testing.T) {
	var c, err = ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "EPWA-1", c.Station.Name)
	require.NotNil(t, c.StationLocation())
	assert.InDelta(t, 52.17, c.StationLocation().Lat, 1e-9)
	assert.Equal(t, "%H:%M:%S", c.TimestampFormat)
	assert.Equal(t, 2, c.LogLevel)

	require.Len(t, c.Outputs, 3)
	assert.Equal(t, OutputConfig{Format: "json", Sink: "tcp", Path: "", Port: 5555, DNSSD: "default"}, c.Outputs[1])
	assert.Equal(t, "/tmp/vdl2.json", c.Outputs[2].Path)

	assert.Equal(t, ":9110", c.Metrics.Listen)
	assert.Equal(t, 4000, c.Decoder.MaxFrameLength)
	assert.Equal(t, 2000, c.Decoder.MaxFrameLengthCorrected)

	assert.True(t, c.Filter.NoEmpty)
	assert.True(t, c.Filter.ACARSOnly)
	var ids, idErr = c.Filter.StationIDs()
	require.NoError(t, idErr)
	assert.Equal(t, []uint32{0x10A1B2, 0x4CA9B1}, ids)
}

func TestParseConfigDefaults(t *testing.T) {
	var c, err = ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.Nil(t, c.StationLocation())
	assert.Equal(t, MAX_FRAME_LENGTH, c.Decoder.MaxFrameLength)
	assert.Equal(t, DEFAULT_TIMESTAMP_FORMAT, c.TimestampFormat)
}

func TestParseConfigRejects(t *testing.T) {
	for name, yaml := range map[string]string{
		"unknown key":        "colour: blue\n",
		"lat without lon":    "station: {lat: 52}\n",
		"lat out of range":   "station: {lat: 91, lon: 0}\n",
		"frame length":       "decoder: {max_frame_length: 0}\n",
		"corrected too long": "decoder: {max_frame_length: 100, max_frame_length_corrected: 200}\n",
		"format":             "outputs: [{format: xml, sink: stdout}]\n",
		"sink":               "outputs: [{format: text, sink: udp}]\n",
		"file without path":  "outputs: [{format: text, sink: file}]\n",
		"port":               "outputs: [{format: text, sink: tcp, port: 70000}]\n",
		"station id":         "filter: {stations: [ZZZZZZ]}\n",
		"station id too big": "filter: {stations: [1000000]}\n",
		"not yaml":           "outputs: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			var _, err = ParseConfig([]byte(yaml))
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("station: {name: TEST}\n"), 0o600))

	var c, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "TEST", c.Station.Name)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigSearch(t *testing.T) {
	var dir = t.TempDir()
	t.Chdir(dir)

	var c, err = LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, c.Station.Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "husky.yaml"), []byte("station: {name: FOUND}\n"), 0o600))
	c, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "FOUND", c.Station.Name)
}
