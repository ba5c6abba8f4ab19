package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashring/internal/ring"
	"hashring/internal/router"
)

func TestParsePeers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Peer
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  []Peer{},
		},
		{
			name:  "single peer",
			input: "n1=127.0.0.1:50051",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
			},
		},
		{
			name:  "multiple peers",
			input: "n1=127.0.0.1:50051,n2=127.0.0.1:50052,n3=127.0.0.1:50053",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
				{ID: "n2", Addr: "127.0.0.1:50052"},
				{ID: "n3", Addr: "127.0.0.1:50053"},
			},
		},
		{
			name:  "with spaces",
			input: "n1 = 127.0.0.1:50051 , n2 = 127.0.0.1:50052",
			want: []Peer{
				{ID: "n1", Addr: "127.0.0.1:50051"},
				{ID: "n2", Addr: "127.0.0.1:50052"},
			},
		},
		{
			name:    "invalid format - no equals",
			input:   "n1:127.0.0.1:50051",
			wantErr: true,
		},
		{
			name:    "invalid format - empty ID",
			input:   "=127.0.0.1:50051",
			wantErr: true,
		},
		{
			name:    "invalid format - empty addr",
			input:   "n1=",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeers(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePeers() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if len(got) != len(tt.want) {
					t.Errorf("ParsePeers() length = %d, want %d", len(got), len(tt.want))
					return
				}
				for i := range got {
					if got[i].ID != tt.want[i].ID || got[i].Addr != tt.want[i].Addr {
						t.Errorf("ParsePeers()[%d] = %v, want %v", i, got[i], tt.want[i])
					}
				}
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ringd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name: edge-router
listen: ":9000"
ring:
  range: 24
  weight: 4
  distribution: uniform
  order_nodes: sorted
  hash: xxhash
members:
  - id: n1
    addr: 127.0.0.1:7001
    weight: 8
  - id: n2
    addr: 127.0.0.1:7002
    points: [3, 9]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "edge-router", cfg.Name)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, RingConfig{Range: 24, Weight: 4, Distribution: "uniform", OrderNodes: "sorted", Hash: "xxhash"}, cfg.Ring)
	assert.Equal(t, []Peer{
		{ID: "n1", Addr: "127.0.0.1:7001", Weight: 8},
		{ID: "n2", Addr: "127.0.0.1:7002", Points: []int{3, 9}},
	}, cfg.Peers)
}

func TestLoad_KeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "members: []\n"))
	require.NoError(t, err)
	assert.Equal(t, Default().ListenAddr, cfg.ListenAddr)
	assert.Equal(t, ring.DefaultRange, cfg.Ring.Range)
	assert.Equal(t, ring.DefaultWeight, cfg.Ring.Weight)

	cfg, err = Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "ring:\n  replicas: 3\n"},
		{"bad distribution", "ring:\n  distribution: zigzag\n"},
		{"bad hash", "ring:\n  hash: md5\n"},
		{"bad ordering", "ring:\n  order_nodes: reverse\n"},
		{"negative weight", "ring:\n  weight: -1\n"},
		{"member without addr", "members:\n  - id: n1\n"},
		{"conflicting addr", "members:\n  - {id: n1, addr: a}\n  - {id: n1, addr: b}\n"},
		{"point out of range", "ring:\n  range: 10\nmembers:\n  - {id: n1, addr: a, points: [10]}\n"},
		{"uniform range too small", "ring:\n  range: 10\n  weight: 4\n  distribution: uniform\nmembers:\n  - {id: n1, addr: a}\n  - {id: n2, addr: b}\n  - {id: n3, addr: c}\n"},
		{"malformed yaml", "ring: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_RingOptions(t *testing.T) {
	cfg := Default()
	cfg.Ring.Distribution = "Uniform"
	cfg.Ring.OrderNodes = "sorted"
	cfg.Ring.Hash = "xxhash"
	cfg.Ring.Seed = 42

	opts, err := cfg.RingOptions()
	require.NoError(t, err)
	assert.Equal(t, ring.Uniform, opts.Distribution)
	assert.Equal(t, ring.DefaultRange, opts.Range)
	require.NotNil(t, opts.OrderNodes)
	assert.Negative(t, opts.OrderNodes("a", "b"))
	require.NotNil(t, opts.Hash)
	assert.Equal(t, ring.XXHash("key"), opts.Hash("key"))
	assert.NotNil(t, opts.Rand)
}

func TestConfig_SeedMakesRandomPlacementReproducible(t *testing.T) {
	cfg := Default()
	cfg.Ring.Seed = 7

	points := func() []int {
		opts, err := cfg.RingOptions()
		require.NoError(t, err)
		r := ring.New(opts)
		require.NoError(t, r.Add("n1"))
		p, _ := r.Points("n1")
		return p
	}
	assert.Equal(t, points(), points())
}

func TestConfig_BuildMembers(t *testing.T) {
	cfg := &Config{
		ListenAddr: ":7400",
		Peers: []Peer{
			{ID: "n1", Addr: "127.0.0.1:50051", Weight: 80},
			{ID: "n2", Addr: "127.0.0.1:50052", Points: []int{1, 2}},
			{ID: "n1", Addr: "127.0.0.1:50051"},
		},
	}
	require.NoError(t, cfg.Validate())

	members := cfg.BuildMembers()
	assert.Equal(t, []router.Member{
		{ID: "n1", Addr: "127.0.0.1:50051", Weight: 80},
		{ID: "n2", Addr: "127.0.0.1:50052", Points: []int{1, 2}},
		{ID: "n1", Addr: "127.0.0.1:50051"},
	}, members)

	rt := router.New(ring.Options[string]{})
	require.NoError(t, rt.SetMembers(members))
	load := rt.Load()
	assert.Equal(t, 80+ring.DefaultWeight, load["n1"])
	assert.Equal(t, 2, load["n2"])
}
