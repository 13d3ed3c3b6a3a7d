package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/inbox"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox and process new messages as they arrive",
	Long: `Watch the inbox directory for new message files and run each one
through the pipeline. Messages that already produced a claim are skipped.

Claims still park at the review gate; watching only automates intake.
Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	seen := make(map[string]bool)
	processed, err := a.store.ListProcessedMessageIDs()
	if err != nil {
		return fmt.Errorf("list processed messages: %w", err)
	}
	for _, id := range processed {
		seen[id] = true
	}

	// Catch up on messages that arrived while not watching.
	backlog, err := a.inbox.List()
	if err != nil {
		return err
	}

	watcher, err := inbox.NewWatcher(a.inbox.Dir())
	if err != nil {
		return err
	}
	defer watcher.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Watching %s for new messages...\n", a.inbox.Dir())

	for _, id := range backlog {
		handleInboxMessage(a, seen, id)
	}

	for {
		select {
		case id, ok := <-watcher.Messages():
			if !ok {
				return nil
			}
			handleInboxMessage(a, seen, id)
		case <-sig:
			fmt.Println("\nStopping watcher.")
			return nil
		}
	}
}

func handleInboxMessage(a *app, seen map[string]bool, id string) {
	if seen[id] {
		return
	}
	seen[id] = true

	msg, err := a.inbox.Load(id)
	if err != nil {
		a.log.Error().Str("message", id).Err(err).Msg("could not load message")
		return
	}
	if seenMessage(seen, msg.ID) {
		return
	}

	claim, intr, err := a.pipeline.Process(context.Background(), msg)
	if err != nil {
		a.log.Error().Str("message", id).Err(err).Msg("processing failed")
		return
	}
	fmt.Println()
	printOutcome(claim, intr)
}

// seenMessage marks the message's own ID as handled when it differs from
// the file name it was loaded under.
func seenMessage(seen map[string]bool, msgID string) bool {
	if seen[msgID] {
		return true
	}
	seen[msgID] = true
	return false
}
