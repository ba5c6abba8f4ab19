// Command ringd serves consistent hash ring lookups over gRPC.
//
// Members come from a YAML config file (--config) and/or a static peer list
// (--peers id=addr,...). Flags override values from the file.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"hashring/internal/config"
	"hashring/internal/router"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		name         = flag.String("name", "", "name used in log lines")
		listen       = flag.String("listen", "", "gRPC listen address")
		peers        = flag.String("peers", "", "comma-separated members: id1=addr1,id2=addr2")
		size         = flag.Int("range", -1, "ring capacity (control points are in [0, range))")
		weight       = flag.Int("weight", -1, "default control points per member")
		distribution = flag.String("distribution", "", "control point placement: random or uniform")
		orderNodes   = flag.String("order-nodes", "", "order pending members before uniform placement: sorted")
		hash         = flag.String("hash", "", "key hash: pjw or xxhash")
		seed         = flag.Uint64("seed", 0, "seed for random placement (0 picks one at startup)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *name != "" {
		cfg.Name = *name
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *size >= 0 {
		cfg.Ring.Range = *size
	}
	if *weight >= 0 {
		cfg.Ring.Weight = *weight
	}
	if *distribution != "" {
		cfg.Ring.Distribution = *distribution
	}
	if *orderNodes != "" {
		cfg.Ring.OrderNodes = *orderNodes
	}
	if *hash != "" {
		cfg.Ring.Hash = *hash
	}
	if *seed != 0 {
		cfg.Ring.Seed = *seed
	}
	if *peers != "" {
		parsed, err := config.ParsePeers(*peers)
		if err != nil {
			log.Fatalf("Failed to parse peers: %v", err)
		}
		cfg.Peers = append(cfg.Peers, parsed...)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	opts, err := cfg.RingOptions()
	if err != nil {
		log.Fatalf("Invalid ring options: %v", err)
	}

	rt := router.New(opts)
	if err := rt.SetMembers(cfg.BuildMembers()); err != nil {
		log.Fatalf("Failed to build ring: %v", err)
	}

	log.Printf("[%s] ring: range=%d weight=%d distribution=%s hash=%s members=%d",
		cfg.Name, cfg.Ring.Range, cfg.Ring.Weight, opts.Distribution, cfg.Ring.Hash, len(cfg.Peers))

	if err := serve(cfg, rt); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// serve runs the gRPC server until SIGINT or SIGTERM.
func serve(cfg *config.Config, rt *router.Router) error {
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	srv := grpc.NewServer()
	router.RegisterRingServer(srv, router.NewServer(rt, cfg.Name))
	reflection.Register(srv)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[%s] gRPC server listening on %s", cfg.Name, lis.Addr())
		errCh <- srv.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[%s] received %v, shutting down", cfg.Name, sig)
		srv.GracefulStop()
		return nil
	}
}
