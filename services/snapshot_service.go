package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"stock_recommendation_backend/services/scoring"
)

// Snapshot data locations. The files are maintained by a separate fetch
// pipeline; this service only reads them.
const (
	FundamentalsFile = "data/fundamentals.json"
	PriceHistoryDir  = "data/prices"
	snapshotMaxAge   = 30 * time.Minute
)

// FundamentalsSnapshot is the on-disk shape of the fundamentals file
type FundamentalsSnapshot struct {
	UpdatedAt string                              `json:"updated_at"`
	Count     int                                 `json:"count"`
	Stocks    map[string]scoring.FundamentalAttrs `json:"stocks"`
}

// PriceHistoryFile is the on-disk shape of one symbol's price history,
// oldest point first
type PriceHistoryFile struct {
	Symbol      string               `json:"symbol"`
	LastUpdated string               `json:"last_updated"`
	DataCount   int                  `json:"data_count"`
	Prices      []scoring.PricePoint `json:"prices"`
}

// SnapshotService serves per-symbol fundamental attributes and price
// history to the aggregator's sub-scorers. Fundamentals are held in memory
// and reloaded when stale; price histories are read per symbol and cached.
type SnapshotService struct {
	mu           sync.RWMutex
	fundamentals map[string]scoring.FundamentalAttrs
	loadedAt     time.Time

	historyMu sync.RWMutex
	histories map[string][]scoring.PricePoint
}

// Global snapshot service instance
var GlobalSnapshotService *SnapshotService

// InitSnapshotService initializes the global snapshot service. A missing
// fundamentals file is not an error: lookups simply miss until the fetch
// pipeline writes one.
func InitSnapshotService() error {
	GlobalSnapshotService = &SnapshotService{
		fundamentals: make(map[string]scoring.FundamentalAttrs),
		histories:    make(map[string][]scoring.PricePoint),
	}

	if err := GlobalSnapshotService.reloadFundamentals(); err != nil {
		log.Printf("Fundamentals snapshot not loaded: %v", err)
	}
	return nil
}

// Fundamentals returns the snapshot attributes for a symbol
func (ss *SnapshotService) Fundamentals(symbol string) (scoring.FundamentalAttrs, bool) {
	ss.mu.RLock()
	stale := time.Since(ss.loadedAt) > snapshotMaxAge
	attrs, ok := ss.fundamentals[symbol]
	ss.mu.RUnlock()

	if stale {
		if err := ss.reloadFundamentals(); err == nil {
			ss.mu.RLock()
			attrs, ok = ss.fundamentals[symbol]
			ss.mu.RUnlock()
		}
	}
	return attrs, ok
}

// History returns the price history for a symbol, oldest first
func (ss *SnapshotService) History(symbol string) ([]scoring.PricePoint, bool) {
	ss.historyMu.RLock()
	points, ok := ss.histories[symbol]
	ss.historyMu.RUnlock()
	if ok {
		return points, true
	}

	file, err := ss.loadPriceHistory(symbol)
	if err != nil {
		return nil, false
	}

	ss.historyMu.Lock()
	ss.histories[symbol] = file.Prices
	ss.historyMu.Unlock()
	return file.Prices, true
}

// InvalidateHistories drops the in-memory price history cache so the next
// lookup rereads from disk
func (ss *SnapshotService) InvalidateHistories() {
	ss.historyMu.Lock()
	ss.histories = make(map[string][]scoring.PricePoint)
	ss.historyMu.Unlock()
}

// reloadFundamentals reads the fundamentals file into memory
func (ss *SnapshotService) reloadFundamentals() error {
	data, err := os.ReadFile(FundamentalsFile)
	if err != nil {
		return fmt.Errorf("failed to read fundamentals file: %w", err)
	}

	var snapshot FundamentalsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to parse fundamentals file: %w", err)
	}

	ss.mu.Lock()
	ss.fundamentals = snapshot.Stocks
	ss.loadedAt = time.Now()
	ss.mu.Unlock()

	log.Printf("Loaded fundamentals snapshot for %d stocks", len(snapshot.Stocks))
	return nil
}

// loadPriceHistory reads one symbol's price history file
func (ss *SnapshotService) loadPriceHistory(symbol string) (*PriceHistoryFile, error) {
	// Symbols come from screener output; keep the path strictly inside the
	// data directory anyway
	name := strings.ReplaceAll(symbol, string(filepath.Separator), "_")
	path := filepath.Join(PriceHistoryDir, name+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price history for %s: %w", symbol, err)
	}

	var file PriceHistoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price history for %s: %w", symbol, err)
	}
	return &file, nil
}
