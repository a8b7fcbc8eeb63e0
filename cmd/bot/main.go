package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/core"
	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/engine"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/Ananthan-A-K/ResQ/internal/transport"
)

// A headless smoke-test node: joins the mesh on the standard port,
// beacons for a while, and raises one SOS so a nearby node can be
// checked for relay, ack, and resend behavior.
func main() {
	port := 50000
	label := "TestBot"

	// 1. Setup
	dbPath := fmt.Sprintf("resq_bot_%d.db", port)
	db, err := store.Init(dbPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}

	identityPath := fmt.Sprintf("identity_bot_%d.json", port)
	id, err := core.LoadOrGenerate(identityPath, label)
	if err != nil {
		log.Fatalf("Failed to load identity: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bcast, err := transport.NewBroadcast(port, "255.255.255.255")
	if err != nil {
		log.Fatalf("Failed to open transport: %v", err)
	}
	defer bcast.Close()

	peers := discovery.NewTracker(6 * time.Second)
	eng := engine.New(db, bcast, peers, id.NodeID, id.Label, engine.Config{})

	// 2. Start
	fmt.Printf("Bot %s starting on port %d...\n", id.NodeID[:8], port)
	eng.Start(ctx)
	go func() {
		if err := bcast.Listen(ctx, eng.HandlePacket); err != nil {
			log.Printf("Receive loop failed: %v", err)
		}
	}()

	// 3. Let the beacon announce us before shouting
	time.Sleep(4 * time.Second)
	fmt.Printf("Peers in range: %d\n", peers.ActiveCount())

	// 4. Raise an SOS (other nodes should ack and relay it)
	msg, err := eng.Publish(store.KindSOS, "", "Test SOS from bot, please ignore")
	if err != nil {
		log.Fatalf("Failed to publish SOS: %v", err)
	}
	fmt.Printf("Sent SOS %s\n", msg.ID)

	// 5. Wait for acks; the resend loop keeps shouting until one lands
	deadline := time.After(40 * time.Second)
	for {
		select {
		case update := <-eng.MsgUpdates:
			fmt.Printf("Received %s from %s: %s\n", update.Kind, update.OriginLabel, update.Payload)
		case <-deadline:
			if m, err := store.GetMessage(db, msg.ID); err == nil && m.Acknowledged {
				fmt.Println("SOS was acknowledged. Bot shutting down.")
			} else {
				fmt.Println("SOS never acknowledged (no peers in range?). Bot shutting down.")
			}
			os.Exit(0)
		}
	}
}
