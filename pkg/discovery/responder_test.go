package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	flushes int
	lines   []string
}

func (d *fakeDisplay) Flush()            { d.flushes++ }
func (d *fakeDisplay) Print(line string) { d.lines = append(d.lines, line) }

type mapStore map[string]string

func (m mapStore) GetString(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type fixedIP string

func (f fixedIP) IPv4() string { return string(f) }

func newResponder(store mapStore) (*Responder, *fakeDisplay) {
	disp := &fakeDisplay{}
	return &Responder{
		Width:   256,
		Height:  64,
		Build:   "42",
		Store:   store,
		Addrs:   fixedIP("192.168.1.50"),
		Display: disp,
	}, disp
}

func TestResponderDiscovery(t *testing.T) {
	r, disp := newResponder(mapStore{"port": "12345", "rotation": "90", "color_order": "rgb"})

	reply, ok := r.Handle([]byte("dscv"))
	require.True(t, ok)
	assert.Equal(t,
		`{"width":256,"height":64,"rotation":90,"order":1,"color_order":"RGB","ip":"192.168.1.50","port":12345,"build":"42"}`,
		string(reply))
	assert.Equal(t, []string{"Discovery request received"}, disp.lines)
	assert.Zero(t, disp.flushes)
}

func TestResponderSync(t *testing.T) {
	r, disp := newResponder(mapStore{})

	reply, ok := r.Handle([]byte("sync"))
	assert.False(t, ok)
	assert.Nil(t, reply)
	assert.Equal(t, 1, disp.flushes)
}

func TestResponderIgnoresOtherDatagrams(t *testing.T) {
	r, disp := newResponder(mapStore{})

	for _, d := range []string{"", "dscv\n", "DSCV", `{"width":256}`, "multiverse:"} {
		_, ok := r.Handle([]byte(d))
		assert.False(t, ok, d)
	}
	assert.Zero(t, disp.flushes)
	assert.Empty(t, disp.lines)
}
