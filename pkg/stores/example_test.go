package stores_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/openfroyo/tfsync/pkg/engine"
	"github.com/openfroyo/tfsync/pkg/stores"
)

// ExampleOpen demonstrates journaling a run and its changes.
func ExampleOpen() {
	dir, err := os.MkdirTemp("", "journal")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	store, err := stores.Open(ctx, stores.Config{Path: filepath.Join(dir, "journal.db")})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	run := &engine.Run{ID: "run-001", Command: engine.OperationSync, Status: engine.RunStatusRunning}
	if err := store.SaveRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	change := &engine.Change{
		RunID:    run.ID,
		Resource: "network",
		Source:   "networks.tf.json",
		Address:  "resource/google_compute_network/default",
		Action:   engine.ActionCreated,
	}
	if err := store.RecordChange(ctx, change); err != nil {
		log.Fatal(err)
	}

	run.Summary.Record(change.Action)
	run.Complete(nil)
	if err := store.SaveRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	changes, err := store.ListChanges(ctx, run.ID)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range changes {
		fmt.Println(c.Action, c.Source, c.Address)
	}
	fmt.Println(run.Status)
	// Output:
	// created networks.tf.json resource/google_compute_network/default
	// succeeded
}
