// Command rmi-server runs the RMI protocol server: it accepts one
// controller connection at a time, authenticates it against rmi.config,
// and dispatches its commands (spec §6.4).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/l16dev/rmi/internal/config"
	"github.com/l16dev/rmi/internal/server"
	"github.com/l16dev/rmi/internal/version"
)

const defaultPort = 1234

func main() {
	configPath := flag.String("config", "rmi.config", "credentials file path")
	selfPath := flag.String("self-path", "", "override self-binary path used for restart/self-update detection")
	flag.Parse()

	// spec §6.4: "server [port]" — more than two extra arguments is an
	// error; when extras are given, the last one is taken as the port
	// (matching the original's argv[argc-1] convention).
	args := flag.Args()
	if len(args) > 2 {
		log.Fatalf("usage: %s [-config path] [-self-path path] [port]", os.Args[0])
	}
	port := defaultPort
	if len(args) > 0 {
		last := args[len(args)-1]
		p, err := strconv.Atoi(last)
		if err != nil {
			log.Fatalf("invalid port %q: %v", last, err)
		}
		port = p
	}

	log.SetFlags(log.LstdFlags)
	log.Printf("rmi-server v%s (built %s)", version.Version, version.BuildTime)

	creds, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("loaded credentials from %s (fingerprint %s)", *configPath, config.Fingerprint(creds))

	srv, err := server.New(fmt.Sprintf(":%d", port), creds, *selfPath, os.Args)
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Printf("listening on %s", srv.Addr())

	if err := srv.Serve(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
