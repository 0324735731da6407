// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Command mpcd is a thin composition root wiring the core's packages
// together into a runnable validator-side MPC engine. It is not part
// of the core's public contract (spec §1: "CLI/config loading...
// outside the core"); chain client, consensus transport, checkpoint
// aggregation, and keystore wiring are left as placeholders an
// embedding validator binary would supply. Ground: the teacher's
// main.go construct-parties/construct-channels/drive-a-loop shape,
// rewritten at a fraction of its size since no local simulation
// harness is needed here.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dwallet-labs/mpc-core/adapter"
	"github.com/dwallet-labs/mpc-core/config"
	"github.com/dwallet-labs/mpc-core/internal/log"
	"github.com/dwallet-labs/mpc-core/manager"
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/reporter"
	"github.com/dwallet-labs/mpc-core/router"
	"github.com/dwallet-labs/mpc-core/sink"
	"github.com/dwallet-labs/mpc-core/wire"
)

var logger = log.Named("mpcd")

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, defaults used otherwise)")
	logLevel := flag.String("log-level", "info", "log level for every mpc-core logger")
	flag.Parse()

	if err := log.SetLevel(*logLevel); err != nil {
		logger.Warnf("invalid log level %q: %v", *logLevel, err)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Errorf("loading config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Committee membership is normally sourced from the chain client; a
	// single-entry committee stands in for that collaborator here.
	committee := party.NewCommittee(map[party.AuthorityName]uint64{"self": 1}, 6700, 5000)
	self, _ := committee.IDOf("self")

	dispatch := adapter.NewDispatcher()
	// Concrete Protocol implementations (DKG, presign, sign, ...) are
	// registered by the embedding validator binary; none are wired here
	// since they depend on the cryptographic library that binary picks.

	consensus := &unwiredConsensusClient{}
	checkpoints := &unwiredCheckpointClient{}
	keys := &unwiredKeySource{}

	outputSink := sink.New(checkpoints)

	var m *manager.Manager
	rep := reporter.New(consensus, committee.AccessStructure(), func(id wire.SessionID, round uint64, accused party.Set) {
		if s, ok := m.Session(id); ok {
			s.AddGloballyMalicious(accused)
		}
	})

	m = manager.New(manager.Deps{
		Self:      self,
		Access:    committee.AccessStructure(),
		Config:    cfg,
		Dispatch:  dispatch,
		Consensus: consensus,
		Reporter:  rep,
		Sink:      outputSink,
		Keys:      keys,
	})

	events := &unwiredEventSource{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumeConsensus(ctx, consensus, m)
	go consumeEvents(ctx, events, m)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Tick(ctx); err != nil {
				logger.Warnf("tick: %v", err)
			}
		}
	}
}

func consumeConsensus(ctx context.Context, client wire.ConsensusClient, m *manager.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-client.Stream():
			if !ok {
				return
			}
			m.OnConsensusMessage(d)
		}
	}
}

func consumeEvents(ctx context.Context, src router.EventSource, m *manager.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src.Events():
			if !ok {
				return
			}
			if err := m.OnEvent(ev); err != nil {
				logger.Warnf("dispatching event for session %s: %v", ev.Session, err)
			}
		}
	}
}

// unwiredConsensusClient, unwiredCheckpointClient, and unwiredKeySource
// are placeholders: the real implementations live in the embedding
// validator binary (chain RPC, consensus transport, keystore), out of
// scope per spec §1.
type unwiredConsensusClient struct{}

func (unwiredConsensusClient) Publish(wire.ConsensusMessage) error { return nil }
func (unwiredConsensusClient) Stream() <-chan wire.Delivered       { return nil }

type unwiredCheckpointClient struct{}

func (unwiredCheckpointClient) Checkpoint(wire.SessionID, []byte, protocol.Kind) error {
	return nil
}

type unwiredKeySource struct{}

func (unwiredKeySource) NetworkKeyDecryptionShare() ([]byte, error) { return nil, nil }

var _ router.EventSource = (*unwiredEventSource)(nil)

type unwiredEventSource struct{}

func (unwiredEventSource) Events() <-chan router.Event { return nil }
