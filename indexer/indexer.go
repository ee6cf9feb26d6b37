package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"claimchain/core/events"
	"claimchain/core/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

var ErrUnsupportedDriver = errors.New("indexer: unsupported driver")

// Open connects to the configured database and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return db, nil
}

// Indexer persists committed events. It implements events.Emitter so it can
// sit directly behind the node.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func New(db *gorm.DB) *Indexer {
	return &Indexer{db: db, logger: slog.Default(), now: time.Now}
}

// SetLogger overrides the logger used to report persistence failures.
func (ix *Indexer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ix.logger = logger
}

// SetNowFunc overrides the clock used for CreatedAt.
func (ix *Indexer) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ix.now = now
}

// DB exposes the underlying connection.
func (ix *Indexer) DB() *gorm.DB { return ix.db }

// Emit implements events.Emitter. Failures are logged; the ledger is the
// source of truth and the index can be rebuilt from receipts.
func (ix *Indexer) Emit(evt events.Event) {
	rendered := events.Render(evt)
	if rendered == nil || rendered.Type == "" {
		return
	}
	if err := ix.Store(rendered); err != nil {
		ix.logger.Error("index event",
			slog.String("type", rendered.Type),
			slog.String("txHash", rendered.TxHash),
			slog.String("error", err.Error()))
	}
}

// Store persists a single rendered event.
func (ix *Indexer) Store(evt *types.Event) error {
	if ix == nil || ix.db == nil {
		return fmt.Errorf("indexer: not configured")
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return fmt.Errorf("indexer: encode attributes: %w", err)
	}
	now := ix.now().UTC()
	return ix.db.Transaction(func(tx *gorm.DB) error {
		record := &EventRecord{
			ID:         uuid.New(),
			Height:     evt.Height,
			TxHash:     evt.TxHash,
			Type:       evt.Type,
			Attributes: string(attrs),
			CreatedAt:  now,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if evt.Type != events.TypeTokenClaimed {
			return nil
		}
		claim, err := claimFromEvent(evt, now)
		if err != nil {
			return err
		}
		return tx.Create(claim).Error
	})
}

func claimFromEvent(evt *types.Event, now time.Time) (*ClaimRecord, error) {
	attrs := evt.Attributes
	amount, err := strconv.ParseUint(attrs["amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("indexer: claim amount: %w", err)
	}
	return &ClaimRecord{
		ID:          uuid.New(),
		Height:      evt.Height,
		TxHash:      evt.TxHash,
		Claimant:    attrs["user"],
		Destination: attrs["destination"],
		Mint:        attrs["mint"],
		Amount:      amount,
		Scaled:      attrs["scaled"],
		RefundTo:    attrs["refundTo"],
		CreatedAt:   now,
	}, nil
}

// Filter narrows ListEvents results.
type Filter struct {
	Type       string
	TxHash     string
	FromHeight uint64
	Limit      int
}

// ListEvents returns indexed events ordered by height.
func (ix *Indexer) ListEvents(filter Filter) ([]types.Event, error) {
	query := ix.db.Model(&EventRecord{})
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if h := strings.TrimSpace(filter.TxHash); h != "" {
		query = query.Where("tx_hash = ?", strings.TrimPrefix(strings.ToLower(h), "0x"))
	}
	if filter.FromHeight > 0 {
		query = query.Where("height >= ?", filter.FromHeight)
	}
	var records []EventRecord
	if err := query.Order("height asc").Order("created_at asc").Limit(clampLimit(filter.Limit)).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("indexer: list events: %w", err)
	}
	out := make([]types.Event, 0, len(records))
	for _, record := range records {
		attrs := map[string]string{}
		if record.Attributes != "" {
			if err := json.Unmarshal([]byte(record.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode attributes: %w", err)
			}
		}
		out = append(out, types.Event{
			Type:       record.Type,
			Attributes: attrs,
			Height:     record.Height,
			TxHash:     record.TxHash,
		})
	}
	return out, nil
}

// Claims returns every indexed claim, optionally limited to one claimant.
func (ix *Indexer) Claims(claimant string) ([]ClaimRecord, error) {
	query := ix.db.Model(&ClaimRecord{})
	if u := strings.TrimSpace(claimant); u != "" {
		query = query.Where("claimant = ?", u)
	}
	var records []ClaimRecord
	if err := query.Order("height asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("indexer: list claims: %w", err)
	}
	return records, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
