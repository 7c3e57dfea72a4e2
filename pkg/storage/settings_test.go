package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapGetter map[string]string

func (m mapGetter) GetString(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings(mapGetter{})
	assert.Equal(t, 54321, s.Port)
	assert.Equal(t, 54321, s.MulticastPort)
	assert.Equal(t, "239.255.111.111", s.MulticastIP)
	assert.Equal(t, 0, s.Rotation)
	assert.Equal(t, 1, s.Order)
	assert.Equal(t, 127, s.Brightness)
	assert.Equal(t, "BGR", s.ColorOrder)
}

func TestLoadSettingsParsing(t *testing.T) {
	tests := []struct {
		name   string
		values mapGetter
		check  func(t *testing.T, s Settings)
	}{
		{"valid port", mapGetter{"port": "8080"}, func(t *testing.T, s Settings) { assert.Equal(t, 8080, s.Port) }},
		{"signed port", mapGetter{"port": "-1"}, func(t *testing.T, s Settings) { assert.Equal(t, 54321, s.Port) }},
		{"port out of range", mapGetter{"port": "70000"}, func(t *testing.T, s Settings) { assert.Equal(t, 54321, s.Port) }},
		{"port with spaces", mapGetter{"port": " 80"}, func(t *testing.T, s Settings) { assert.Equal(t, 54321, s.Port) }},
		{"rotation 180", mapGetter{"rotation": "180"}, func(t *testing.T, s Settings) { assert.Equal(t, 180, s.Rotation) }},
		{"rotation 45", mapGetter{"rotation": "45"}, func(t *testing.T, s Settings) { assert.Equal(t, 0, s.Rotation) }},
		{"brightness over", mapGetter{"brightness": "256"}, func(t *testing.T, s Settings) { assert.Equal(t, 127, s.Brightness) }},
		{"color order lower", mapGetter{"color_order": " rgb\n"}, func(t *testing.T, s Settings) { assert.Equal(t, "RGB", s.ColorOrder) }},
		{"color order unknown", mapGetter{"color_order": "XYZ"}, func(t *testing.T, s Settings) { assert.Equal(t, "BGR", s.ColorOrder) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, LoadSettings(tt.values))
		})
	}
}
