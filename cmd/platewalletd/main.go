// main.go - Derivation daemon: recognized plates in, account addresses out.
//
// Reads a batch of structured plate identifiers (the output of the external
// recognition service), derives a counterfactual account for each behind an
// ownership proof, and reports the resulting addresses. Rental plates
// additionally open a validity window in the tracker.
//
// Usage:
//   platewalletd -config config.json

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"platewallet/internal/derivation"
	"platewallet/internal/ledger"
	"platewallet/internal/plate"
	"platewallet/internal/prover"
)

// PlateEntry is one recognized plate in the input batch.
type PlateEntry struct {
	Region         string `json:"region"`
	ClassCode      string `json:"class_code"`
	Syllable       string `json:"syllable"`
	Serial         string `json:"serial"`
	Owner          string `json:"owner"`
	DeploymentSalt uint64 `json:"deployment_salt"`
}

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "platewalletd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	deployer, err := ledger.ParseAddress(cfg.DeployerAddress)
	if err != nil {
		return err
	}

	proveTimeout := time.Duration(cfg.ProveTimeoutSeconds) * time.Second
	prv, err := prover.SetupOrLoad(cfg.KeyDir, proveTimeout, log)
	if err != nil {
		return err
	}

	chain := ledger.NewChain()
	factory := ledger.NewFactory(ledger.FactoryConfig{
		Deployer:     deployer,
		RequireProof: cfg.RequireProof,
		Verifier:     ledger.NewVerifier(prv.VerifyingKey(), log),
	}, chain, log)
	rentals := ledger.NewRentalTracker(
		time.Duration(cfg.RentalWindowHours)*time.Hour, nil, log)
	service := derivation.NewService(prv, factory, rentals, log)

	entries, err := loadPlates(cfg.PlatesPath)
	if err != nil {
		return err
	}
	log.Info().Int("plates", len(entries)).Msg("starting derivation batch")

	metrics := NewMetricsCollector()
	reqs := make([]derivation.Request, 0, len(entries))
	for _, e := range entries {
		owner, err := ledger.ParseAddress(e.Owner)
		if err != nil {
			return err
		}
		reqs = append(reqs, derivation.Request{
			Plate:          plate.Plate{Region: e.Region, ClassCode: e.ClassCode, Syllable: e.Syllable, Serial: e.Serial},
			Owner:          owner,
			DeploymentSalt: e.DeploymentSalt,
		})
	}

	start := time.Now()
	results, err := service.DeriveBatch(context.Background(), reqs)
	if err != nil {
		metrics.RecordError("derivation")
		return err
	}

	for i, res := range results {
		rental := reqs[i].Plate.IsRental()
		metrics.RecordDerivation(rental)
		metrics.RecordProofGeneration(res.ProveDuration)
		event := log.Info().
			Str("address", res.Account.Address.Hex()).
			Str("commitment", res.Commitment.String())
		if res.RentalExpiry != nil {
			event = event.Time("rental_expiry", *res.RentalExpiry)
		}
		event.Msg("account ready")
		fmt.Println(res.Account.Address.Hex())
	}
	metrics.RecordDeploys(factory.DeployCount())

	summary, _ := json.Marshal(metrics.Summary())
	log.Info().
		Int("accounts", len(results)).
		Dur("elapsed", time.Since(start)).
		RawJSON("metrics", summary).
		Msg("derivation batch complete")
	return nil
}

// loadPlates reads the recognized-plate batch produced by the vision collaborator.
func loadPlates(path string) ([]PlateEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plates file: %w", err)
	}
	defer f.Close()

	var entries []PlateEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode plates file: %w", err)
	}
	return entries, nil
}
