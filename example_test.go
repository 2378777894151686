package loom_test

import (
	"context"
	"fmt"
	"log"

	"github.com/loomengine/loom"
)

// Example shows the two-click connection flow against an in-memory
// remote: place two nodes, click output then input, confirm.
func Example() {
	ctx := context.Background()

	session, _, err := loom.OpenInMemory(ctx, "demo")
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	source, err := session.AddNode(ctx, "excel_import", "raw data")
	if err != nil {
		log.Fatal(err)
	}
	target, err := session.AddNode(ctx, "statistics", "")
	if err != nil {
		log.Fatal(err)
	}

	session.ClickOutput(source.ID)
	session.ClickInput(target.ID)
	conn, err := session.ConfirmConnection(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("connected %s -> %s\n", conn.SourcePort, conn.TargetPort)

	nodeCtx := session.Context(target.ID)
	fmt.Printf("predecessors of target: %d\n", len(nodeCtx.Predecessors))

	// Output:
	// connected output -> input
	// predecessors of target: 1
}
