package config

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hashring/internal/ring"
	"hashring/internal/router"
)

// Peer is a ring member as written in the config file or on the command line.
type Peer struct {
	ID     string `yaml:"id"`
	Addr   string `yaml:"addr"`
	Weight int    `yaml:"weight,omitempty"`
	Points []int  `yaml:"points,omitempty"`
}

// RingConfig holds the ring construction options.
type RingConfig struct {
	Range        int    `yaml:"range"`
	Weight       int    `yaml:"weight"`
	Distribution string `yaml:"distribution"` // random | uniform
	OrderNodes   string `yaml:"order_nodes"`  // "" | sorted
	Hash         string `yaml:"hash"`         // pjw | xxhash
	Seed         uint64 `yaml:"seed"`         // non-zero makes random placement reproducible
}

// Config holds the ringd configuration.
type Config struct {
	Name       string     `yaml:"name"`
	ListenAddr string     `yaml:"listen"`
	Ring       RingConfig `yaml:"ring"`
	Peers      []Peer     `yaml:"members"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Name:       "ringd",
		ListenAddr: ":7400",
		Ring: RingConfig{
			Range:        ring.DefaultRange,
			Weight:       ring.DefaultWeight,
			Distribution: "random",
			Hash:         "pjw",
		},
	}
}

// Load reads a YAML config file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ParsePeers parses a comma-separated list of peers in the format:
// "id1=addr1,id2=addr2,id3=addr3"
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=addr)", part)
		}

		id := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if id == "" || addr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}

		peers = append(peers, Peer{
			ID:   id,
			Addr: addr,
		})
	}

	return peers, nil
}

// Validate checks the config for values the ring or router would reject.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Ring.Range < 0 {
		return fmt.Errorf("ring.range must not be negative: %d", c.Ring.Range)
	}
	if c.Ring.Weight < 0 {
		return fmt.Errorf("ring.weight must not be negative: %d", c.Ring.Weight)
	}
	opts, err := c.RingOptions()
	if err != nil {
		return err
	}

	size := c.Ring.Range
	if size == 0 {
		size = ring.DefaultRange
	}
	addrs := make(map[string]string, len(c.Peers))
	for i, p := range c.Peers {
		if p.ID == "" || p.Addr == "" {
			return fmt.Errorf("members[%d]: id and addr cannot be empty", i)
		}
		if prev, ok := addrs[p.ID]; ok && prev != p.Addr {
			return fmt.Errorf("members[%d]: %s listed with two addresses (%s, %s)", i, p.ID, prev, p.Addr)
		}
		addrs[p.ID] = p.Addr
		if p.Weight < 0 {
			return fmt.Errorf("members[%d]: weight must not be negative: %d", i, p.Weight)
		}
		for _, pt := range p.Points {
			if pt < 0 || pt >= size {
				return fmt.Errorf("members[%d]: point %d outside [0, %d)", i, pt, size)
			}
		}
	}

	if opts.Distribution == ring.Uniform {
		weight := c.Ring.Weight
		if weight == 0 {
			weight = ring.DefaultWeight
		}
		placed := 0
		for _, p := range c.Peers {
			if len(p.Points) == 0 {
				placed++
			}
		}
		if placed*weight > size {
			return fmt.Errorf("ring.range %d too small for %d uniform members of weight %d", size, placed, weight)
		}
	}
	return nil
}

// RingOptions converts the ring section into ring.Options.
func (c *Config) RingOptions() (ring.Options[string], error) {
	opts := ring.Options[string]{
		Range:  c.Ring.Range,
		Weight: c.Ring.Weight,
	}

	dist, err := ring.ParseDistribution(c.Ring.Distribution)
	if err != nil {
		return opts, fmt.Errorf("ring.distribution: %w", err)
	}
	opts.Distribution = dist

	switch strings.ToLower(c.Ring.OrderNodes) {
	case "", "none":
	case "sorted":
		opts.OrderNodes = strings.Compare
	default:
		return opts, fmt.Errorf("ring.order_nodes: unknown ordering %q (expected sorted)", c.Ring.OrderNodes)
	}

	switch strings.ToLower(c.Ring.Hash) {
	case "", "pjw":
		opts.Hash = ring.PJWHash
	case "xxhash":
		opts.Hash = ring.XXHash
	default:
		return opts, fmt.Errorf("ring.hash: unknown hash %q (expected pjw or xxhash)", c.Ring.Hash)
	}

	if c.Ring.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(c.Ring.Seed, c.Ring.Seed))
	}
	return opts, nil
}

// BuildMembers converts config peers into router members, keeping order and
// repeated ids.
func (c *Config) BuildMembers() []router.Member {
	members := make([]router.Member, 0, len(c.Peers))
	for _, p := range c.Peers {
		members = append(members, router.Member{
			ID:     p.ID,
			Addr:   p.Addr,
			Weight: p.Weight,
			Points: append([]int(nil), p.Points...),
		})
	}
	return members
}
