package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wakala/status-reconciler/internal/domain"
)

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	startDate := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	currencies := []string{"USD", "EUR", "KES"}

	var allTxns []domain.Transaction
	report := make(map[string]domain.Outcome)

	for i := 1; i <= 120; i++ {
		id := fmt.Sprintf("TXN-%05d", i)

		direction := domain.DirectionDebit
		if rng.Float64() < 0.4 {
			direction = domain.DirectionCredit
		}

		createdAt := startDate.Add(time.Duration(rng.Intn(14*24*60)) * time.Minute)
		amount := decimal.New(int64(500+rng.Intn(500000)), -2)

		// Status distribution: 75% sent, 10% waiting, 15% already settled.
		var status domain.TransactionStatus
		roll := rng.Float64()
		switch {
		case roll < 0.75:
			status = domain.StatusSent
		case roll < 0.85:
			status = domain.StatusWaitingToBeSent
		case roll < 0.95:
			status = domain.StatusSuccess
		default:
			status = domain.StatusFailure
		}

		allTxns = append(allTxns, domain.Transaction{
			ID:        id,
			Direction: direction,
			Amount:    amount,
			Currency:  currencies[rng.Intn(len(currencies))],
			Status:    status,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})

		// 90% of sent transactions are in the report, 20% of those failed.
		if status == domain.StatusSent && rng.Float64() < 0.9 {
			outcome := domain.OutcomeSuccess
			if rng.Float64() < 0.2 {
				outcome = domain.OutcomeFail
			}
			report[id] = outcome
		}
	}

	// Entries the store does not know about.
	for i := 1; i <= 3; i++ {
		report[fmt.Sprintf("EXT-%03d", i)] = domain.OutcomeSuccess
	}

	writeJSONFile(filepath.Join(baseDir, "transactions.json"), allTxns)
	fmt.Printf("Generated %d transactions -> transactions.json\n", len(allTxns))

	writeJSONFile(filepath.Join(baseDir, "report.json"), report)
	fmt.Printf("Generated %d report entries -> report.json\n", len(report))
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "./testdata", "../../testdata"} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
