package riskmodel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/silverfund/sfquant/internal/database"
	"github.com/silverfund/sfquant/internal/modules/panels"
)

// CacheSchema is the persistent matrix cache schema. Entries are immutable
// once inserted: a key is written exactly once, whole-matrix or not at all.
const CacheSchema = `
CREATE TABLE IF NOT EXISTS risk_matrix_cache (
    key        TEXT PRIMARY KEY,
    date       TEXT NOT NULL,
    payload    BLOB NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_risk_matrix_cache_date ON risk_matrix_cache(date);
`

// InitCacheSchema applies the matrix cache schema to the given database.
func InitCacheSchema(db *database.DB) error {
	if _, err := db.Exec(CacheSchema); err != nil {
		return fmt.Errorf("failed to apply matrix cache schema: %w", err)
	}
	return nil
}

// CacheEntry pairs an assembled matrix with its validation report.
type CacheEntry struct {
	Matrix *AssetCovarianceMatrix
	Report *ValidationReport
}

// cachedMatrix is the msgpack wire form of a cache entry.
type cachedMatrix struct {
	Date   string           `msgpack:"date"`
	Assets []string         `msgpack:"assets"`
	Data   []float64        `msgpack:"data"`
	Report ValidationReport `msgpack:"report"`
}

// MatrixCache memoizes assembled matrices keyed by (date, panel checksum).
// A small in-memory LRU fronts an optional persistent SQLite tier. Entries
// are immutable; the cache never hands out aliased buffers because the
// matrix type copies on access.
type MatrixCache struct {
	mem *lru.Cache[string, *CacheEntry]
	db  *database.DB // optional persistent tier
	log zerolog.Logger
}

// NewMatrixCache creates a matrix cache. db may be nil for memory-only
// operation.
func NewMatrixCache(entries int, db *database.DB, log zerolog.Logger) (*MatrixCache, error) {
	if entries < 1 {
		entries = 1
	}
	mem, err := lru.New[string, *CacheEntry](entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create matrix LRU: %w", err)
	}
	return &MatrixCache{
		mem: mem,
		db:  db,
		log: log.With().Str("component", "matrix_cache").Logger(),
	}, nil
}

// Get returns the cached entry for a key, consulting the persistent tier on
// a memory miss.
func (c *MatrixCache) Get(key string) (*CacheEntry, bool) {
	if entry, ok := c.mem.Get(key); ok {
		return entry, true
	}

	if c.db == nil {
		return nil, false
	}

	var payload []byte
	err := c.db.QueryRow(
		`SELECT payload FROM risk_matrix_cache WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		return nil, false
	}

	var wire cachedMatrix
	if err := msgpack.Unmarshal(payload, &wire); err != nil {
		c.log.Warn().Err(err).Str("key", key[:8]).Msg("Failed to decode cached matrix, ignoring entry")
		return nil, false
	}

	report := wire.Report
	entry := &CacheEntry{
		Matrix: newAssetCovarianceMatrix(wire.Date, wire.Assets, wire.Data),
		Report: &report,
	}
	c.mem.Add(key, entry)
	return entry, true
}

// Put stores an entry under a key. The persistent tier uses INSERT OR
// IGNORE so an existing key is never overwritten.
func (c *MatrixCache) Put(key string, entry *CacheEntry) {
	c.mem.Add(key, entry)

	if c.db == nil {
		return
	}

	wire := cachedMatrix{
		Date:   entry.Matrix.Date(),
		Assets: entry.Matrix.Assets(),
		Data:   append([]float64(nil), entry.Matrix.raw()...),
		Report: *entry.Report,
	}
	payload, err := msgpack.Marshal(&wire)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key[:8]).Msg("Failed to encode matrix for cache")
		return
	}

	if _, err := c.db.Exec(
		`INSERT OR IGNORE INTO risk_matrix_cache (key, date, payload) VALUES (?, ?, ?)`,
		key, entry.Matrix.Date(), payload); err != nil {
		c.log.Warn().Err(err).Str("key", key[:8]).Msg("Failed to persist cached matrix")
	}
}

// PanelChecksum produces a deterministic key for (date, panel contents).
// Identifiers are walked in sorted order, so identical panel snapshots hash
// identically regardless of load order.
func PanelChecksum(
	date string,
	exposures *panels.ExposureTable,
	factorCov *panels.FactorCovTable,
	specificRisk *panels.SpecificRiskTable,
) string {
	h := sha256.New()
	writeString(h, date)

	factors := exposures.Factors()
	for _, asset := range exposures.Assets() {
		writeString(h, asset)
		for _, factor := range factors {
			if v, ok := exposures.Value(asset, factor); ok {
				writeString(h, factor)
				writeFloat(h, v)
			}
		}
	}

	covFactors := factorCov.Factors()
	for _, fi := range covFactors {
		for _, fj := range covFactors {
			if v, ok := factorCov.Value(fi, fj); ok {
				writeString(h, fi)
				writeString(h, fj)
				writeFloat(h, v)
			}
		}
	}

	for _, asset := range specificRisk.Assets() {
		v, _ := specificRisk.Variance(asset)
		writeString(h, asset)
		writeFloat(h, v)
	}

	sum := h.Sum(nil)
	return date + ":" + hex.EncodeToString(sum[:16])
}

func writeString(w io.Writer, s string) {
	_, _ = w.Write([]byte(s))
	_, _ = w.Write([]byte{0})
}

func writeFloat(w io.Writer, f float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	_, _ = w.Write(buf[:])
}
