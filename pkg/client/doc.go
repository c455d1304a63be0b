// Package client is the Go SDK for the product provenance registry.
//
// It wraps the registry's HTTP API: registering products, appending
// supply-chain events, running authenticity verifications, and querying the
// verification log.
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Recording a product's history
//
//	p, err := c.RegisterProduct(ctx, client.RegisterProductRequest{
//	    ProductID:   "P1",
//	    ProductType: "widget",
//	    Producer:    "ACME",
//	    Timestamp:   1000,
//	    Location:    "Factory A",
//	})
//	_, err = c.AddEvent(ctx, "P1", client.Event{
//	    EventType: "shipped", Timestamp: 1010, Location: "Port B", Handler: "Carrier X",
//	})
//
// # Verifying authenticity
//
//	v, err := c.Verify(ctx, "P1", "hash123", 1020, "Warehouse C")
//	fmt.Println(v.VerificationID, v.ConfidenceScore, v.IsAuthentic)
//
// # Querying history
//
// VerificationLogs returns every verification in an inclusive timestamp
// range across all products, oldest first:
//
//	logs, err := c.VerificationLogs(ctx, 1000, 2000)
//
// Errors for unknown products wrap ErrNotFound; registering an existing ID
// wraps ErrDuplicate. Test with errors.Is.
package client
