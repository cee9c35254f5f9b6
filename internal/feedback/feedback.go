package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pricing/internal/cache"
	"pricing/internal/models"
	"pricing/internal/repository"
)

const (
	ActionAccept      = "accept"
	ActionReject      = "reject"
	ActionCustomPrice = "custom_price"
)

// Actions lists the accepted feedback actions in display order.
var Actions = []string{ActionAccept, ActionReject, ActionCustomPrice}

var (
	ErrMissingField       = errors.New("missing fields")
	ErrInvalidAction      = errors.New("Invalid action")
	ErrMissingCustomPrice = errors.New("custom_price required for action=custom_price")
	ErrInvalidTimestamp   = errors.New("Invalid timestamp")
	ErrKeyBusy            = errors.New("feedback: key busy")
)

// MissingFieldsError names every absent required field.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing fields: " + strings.Join(e.Fields, ",")
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingField
}

// Payload is the raw request body. Pointer fields distinguish absent from zero.
type Payload struct {
	VendorID       *string          `json:"vendor_id"`
	SKU            *string          `json:"sku"`
	SuggestedPrice *decimal.Decimal `json:"suggested_price"`
	Action         *string          `json:"action"`
	CustomPrice    *decimal.Decimal `json:"custom_price,omitempty"`
	Timestamp      *string          `json:"timestamp"`
}

// Feedback is a validated Payload.
type Feedback struct {
	VendorID       string
	SKU            string
	SuggestedPrice decimal.Decimal
	Action         string
	CustomPrice    *decimal.Decimal
	Timestamp      time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate checks required fields in a fixed order, then the action and the
// custom price.
func Validate(p Payload) (Feedback, error) {
	var missing []string
	if p.VendorID == nil || strings.TrimSpace(*p.VendorID) == "" {
		missing = append(missing, "vendor_id")
	}
	if p.SKU == nil || strings.TrimSpace(*p.SKU) == "" {
		missing = append(missing, "sku")
	}
	if p.SuggestedPrice == nil {
		missing = append(missing, "suggested_price")
	}
	if p.Action == nil || strings.TrimSpace(*p.Action) == "" {
		missing = append(missing, "action")
	}
	if p.Timestamp == nil || strings.TrimSpace(*p.Timestamp) == "" {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return Feedback{}, &MissingFieldsError{Fields: missing}
	}

	action := strings.TrimSpace(*p.Action)
	if StatusForAction(action) == "" {
		return Feedback{}, ErrInvalidAction
	}
	if action == ActionCustomPrice && (p.CustomPrice == nil || !p.CustomPrice.IsPositive()) {
		return Feedback{}, ErrMissingCustomPrice
	}

	ts, err := parseTimestamp(*p.Timestamp)
	if err != nil {
		return Feedback{}, err
	}

	fb := Feedback{
		VendorID:       strings.TrimSpace(*p.VendorID),
		SKU:            strings.TrimSpace(*p.SKU),
		SuggestedPrice: *p.SuggestedPrice,
		Action:         action,
		Timestamp:      ts,
	}
	if p.CustomPrice != nil {
		v := *p.CustomPrice
		fb.CustomPrice = &v
	}
	return fb, nil
}

// StatusForAction maps an action to the suggestion status it sets, or "".
func StatusForAction(action string) string {
	switch action {
	case ActionAccept:
		return models.SuggestionAccepted
	case ActionReject:
		return models.SuggestionRejected
	case ActionCustomPrice:
		return models.SuggestionCustom
	default:
		return ""
	}
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	repository.SuggestionRepository
	repository.FeedbackRepository
}

type Ingestor struct {
	Repo   Store
	Locker *cache.Locker
	Logger *zap.Logger
}

// Outcome reports what Record linked and updated.
type Outcome struct {
	FeedbackID          uint64  `json:"feedback_id"`
	SuggestionID        *uint64 `json:"suggestion_id,omitempty"`
	UpdatedSuggestionID *uint64 `json:"updated_suggestion_id,omitempty"`
	Status              string  `json:"status"`
}

// Record stores fb linked to the newest suggestion at the same price, then sets
// the status of the key's newest suggestion. Both writes share one transaction
// and hold the key lock used by suggestion creation.
func (i *Ingestor) Record(ctx context.Context, fb Feedback) (*Outcome, error) {
	if i == nil || i.Repo == nil {
		return nil, errors.New("feedback: repository not configured")
	}
	status := StatusForAction(fb.Action)
	if status == "" {
		return nil, ErrInvalidAction
	}

	release, err := i.lock(ctx, fb.SKU, fb.VendorID)
	if err != nil {
		return nil, err
	}
	defer release()

	out := &Outcome{Status: status}
	err = i.Repo.InTx(ctx, func(tx *gorm.DB) error {
		matched, err := i.Repo.LatestSuggestionAtPriceTx(ctx, tx, fb.SKU, fb.VendorID, fb.SuggestedPrice)
		if err != nil {
			return fmt.Errorf("match suggestion: %w", err)
		}
		item := &models.PriceFeedback{
			VendorID:       fb.VendorID,
			SKU:            fb.SKU,
			SuggestedPrice: fb.SuggestedPrice,
			Action:         fb.Action,
			CustomPrice:    fb.CustomPrice,
			Timestamp:      fb.Timestamp,
		}
		if matched != nil {
			id := matched.ID
			item.SuggestionID = &id
			out.SuggestionID = &id
		}
		if err := i.Repo.InsertFeedbackTx(ctx, tx, item); err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		out.FeedbackID = item.ID

		latest, err := i.Repo.LatestSuggestionTx(ctx, tx, fb.SKU, fb.VendorID)
		if err != nil {
			return fmt.Errorf("latest suggestion: %w", err)
		}
		if latest == nil {
			return nil
		}
		if err := i.Repo.UpdateSuggestionStatusTx(ctx, tx, latest.ID, status); err != nil {
			return fmt.Errorf("update suggestion status: %w", err)
		}
		id := latest.ID
		out.UpdatedSuggestionID = &id
		return nil
	})
	if err != nil {
		return nil, err
	}

	if i.Logger != nil {
		i.Logger.Info("feedback recorded",
			zap.String("sku", fb.SKU),
			zap.String("vendor_id", fb.VendorID),
			zap.String("action", fb.Action),
			zap.Bool("linked", out.SuggestionID != nil),
			zap.Bool("status_updated", out.UpdatedSuggestionID != nil),
		)
	}
	return out, nil
}

// Summary counts feedback rows by action. An empty store yields an empty map.
func (i *Ingestor) Summary(ctx context.Context) (map[string]int64, error) {
	if i == nil || i.Repo == nil {
		return map[string]int64{}, nil
	}
	counts, err := i.Repo.CountFeedbackByAction(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}
	if counts == nil {
		counts = map[string]int64{}
	}
	return counts, nil
}

func (i *Ingestor) lock(ctx context.Context, sku, vendorID string) (func(), error) {
	if i.Locker == nil {
		return func() {}, nil
	}
	release, err := i.Locker.Acquire(ctx, repository.Key{SKU: sku, VendorID: vendorID}.LockName())
	if errors.Is(err, cache.ErrLockTimeout) {
		return nil, ErrKeyBusy
	}
	if err != nil {
		return nil, fmt.Errorf("acquire key lock: %w", err)
	}
	return release, nil
}
