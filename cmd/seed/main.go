// cmd/seed populates a running registry with realistic demo products through
// the Go SDK.
//
// Running twice is safe: products that already exist are skipped, but their
// events and verifications are not replayed.
//
// Usage:
//
//	go run ./cmd/seed
//	REGISTRY_URL=http://localhost:8080 go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmerrifield20/ProvenanceRegistry/pkg/client"
)

const defaultRegistry = "http://localhost:8080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	registryURL := os.Getenv("REGISTRY_URL")
	if registryURL == "" {
		registryURL = defaultRegistry
	}

	c, err := client.New(registryURL)
	if err != nil {
		return err
	}

	created, err := seed(context.Background(), c, products)
	if err != nil {
		return err
	}
	fmt.Printf("\nseed complete: %d new product(s)\n", created)
	return nil
}

type seedVerification struct {
	ImageHash string
	Timestamp int64
	Location  string
}

type seedProduct struct {
	Reg           client.RegisterProductRequest
	Events        []client.Event
	Verifications []seedVerification
}

var products = []seedProduct{
	{
		Reg: client.RegisterProductRequest{
			ProductID: "WINE-2019-0001", ProductType: "wine", Producer: "Château Lafleur",
			Timestamp: 1_700_000_000, Location: "Pomerol, FR",
		},
		Events: []client.Event{
			{EventType: "bottled", Timestamp: 1_700_086_400, Location: "Pomerol, FR", Handler: "Château Lafleur"},
			{EventType: "shipped", Timestamp: 1_700_604_800, Location: "Bordeaux Port, FR", Handler: "Maersk"},
			{EventType: "received", Timestamp: 1_701_900_800, Location: "Newark, US", Handler: "Vintage Imports LLC"},
		},
		Verifications: []seedVerification{
			{ImageHash: "b3f1c9a07e", Timestamp: 1_701_987_200, Location: "Newark, US"},
		},
	},
	{
		Reg: client.RegisterProductRequest{
			ProductID: "WATCH-SN-88213", ProductType: "watch", Producer: "Acme Horology",
			Timestamp: 1_702_000_000, Location: "Geneva, CH",
		},
		Events: []client.Event{
			{EventType: "assembled", Timestamp: 1_702_100_000, Location: "Geneva, CH", Handler: "Workshop 4"},
			{EventType: "shipped", Timestamp: 1_702_500_000, Location: "Zurich Airport, CH", Handler: "Swiss WorldCargo"},
		},
		Verifications: []seedVerification{
			{ImageHash: "img-118", Timestamp: 1_702_600_000, Location: "Boutique, Paris"},
			{ImageHash: "img-119", Timestamp: 1_702_700_000, Location: "Reseller, Lyon"},
		},
	},
	{
		Reg: client.RegisterProductRequest{
			ProductID: "PHARMA-LOT-4471", ProductType: "pharmaceutical", Producer: "Medica Labs",
			Timestamp: 1_703_000_000, Location: "Basel, CH",
		},
		Events: []client.Event{
			{EventType: "packaged", Timestamp: 1_703_050_000, Location: "Basel, CH", Handler: "Line 2"},
			{EventType: "cold-chain-check", Timestamp: 1_703_200_000, Location: "Frankfurt, DE", Handler: "DHL Medical"},
			{EventType: "delivered", Timestamp: 1_703_400_000, Location: "Madrid, ES", Handler: "Farmacia Central"},
		},
		Verifications: []seedVerification{
			{ImageHash: "hash123", Timestamp: 1_703_400_500, Location: "Madrid, ES"},
		},
	},
	{
		Reg: client.RegisterProductRequest{
			ProductID: "SNEAKER-AJ1-0042", ProductType: "footwear", Producer: "Stride Co",
			Timestamp: 1_704_000_000, Location: "Ho Chi Minh City, VN",
		},
	},
}

// seed registers each product and replays its history. Existing products are
// left untouched. It returns the number of products created.
func seed(ctx context.Context, c *client.Client, products []seedProduct) (int, error) {
	created := 0
	for _, sp := range products {
		if _, err := c.RegisterProduct(ctx, sp.Reg); err != nil {
			if errors.Is(err, client.ErrDuplicate) {
				fmt.Printf("  skip  %s (already registered)\n", sp.Reg.ProductID)
				continue
			}
			return created, fmt.Errorf("register %s: %w", sp.Reg.ProductID, err)
		}
		created++

		for _, ev := range sp.Events {
			if _, err := c.AddEvent(ctx, sp.Reg.ProductID, ev); err != nil {
				return created, fmt.Errorf("event %s/%s: %w", sp.Reg.ProductID, ev.EventType, err)
			}
		}
		for _, v := range sp.Verifications {
			res, err := c.Verify(ctx, sp.Reg.ProductID, v.ImageHash, v.Timestamp, v.Location)
			if err != nil {
				return created, fmt.Errorf("verify %s: %w", sp.Reg.ProductID, err)
			}
			fmt.Printf("  verify %s → %s (%.2f)\n", sp.Reg.ProductID, res.VerificationID, res.ConfidenceScore)
		}
		fmt.Printf("  seed  %s (%d events, %d verifications)\n",
			sp.Reg.ProductID, len(sp.Events), len(sp.Verifications))
	}
	return created, nil
}
