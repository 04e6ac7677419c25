// Command relay runs the optional Relay Agent (spec.md §4.9): a process
// that subscribes to the wildcard subject and fans out routable messages
// to every peer registered for that message's subject.
//
// Configuration source priority, matching the teacher's orchestrator
// entrypoint: a config file path given on the command line, else the
// MARKETPLACE_AGENT role's environment variables and a default process config.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/relay"
	"github.com/shane2512/AeXoWorK-sub001/public/fabric"
)

func main() {
	configPath := ""
	if len(os.Args) >= 2 {
		configPath = os.Args[1]
	}

	runtime, err := fabric.New(fabric.Options{
		RolePrefix: config.RoleMarketplaceAgent,
		ConfigPath: configPath,
	})
	if err != nil {
		log.Fatalf("relay: failed to initialize fabric runtime: %v", err)
	}

	table := relay.NewTable()
	for _, peer := range runtime.Process.Peers {
		table.Register(peer.AccountID, peer.Subjects)
	}

	relayAgent := &relay.Agent{Table: table, Send: runtime.Send, Peers: runtime.Peers}
	runtime.Subscribe(registry.Wildcard, relayAgent.OnEnvelope)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.Init(ctx)
	log.Printf("relay: listening as %s, inbound topic %s", runtime.Identity.AccountID, runtime.Identity.InboundTopicID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("relay: received signal %s, shutting down", sig)

	runtime.Stop()
}
