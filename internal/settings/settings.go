// Package settings holds the stall's editable configuration: receipt header,
// spreadsheet sync endpoint, order limits and the PIN hashes used to log in.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by the settings service.
var (
	ErrInvalidPIN       = errors.New("pin must be 4 to 8 digits")
	ErrPINNotSet        = errors.New("pin not set")
	ErrPINMismatch      = errors.New("pin does not match")
	ErrInvalidScriptURL = errors.New("script url must be an absolute http(s) url")
	ErrInvalidInterval  = errors.New("sync interval must be at least 5 seconds")
	ErrInvalidPaper     = errors.New("paper width must be 58 or 80")
	ErrInvalidLimits    = errors.New("order limits must be positive and min <= max")
	ErrUnknownRole      = errors.New("unknown role")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// Settings is the persisted configuration. The PIN hashes never leave the
// process; use View for API responses.
type Settings struct {
	StoreName           string          `json:"store_name"`
	Address             string          `json:"address"`
	Phone               string          `json:"phone"`
	FooterText          string          `json:"footer_text"`
	ScriptURL           string          `json:"script_url"`
	SpreadsheetID       string          `json:"spreadsheet_id"`
	SyncIntervalSeconds int             `json:"sync_interval_seconds"`
	AutoPrint           bool            `json:"auto_print"`
	Currency            string          `json:"currency"`
	PaperWidth          int             `json:"paper_width"`
	MinOrderAmount      decimal.Decimal `json:"min_order_amount"`
	MaxOrderAmount      decimal.Decimal `json:"max_order_amount"`
	OwnerPINHash        string          `json:"owner_pin_hash,omitempty"`
	CashierPINHash      string          `json:"cashier_pin_hash,omitempty"`
}

// Defaults returns the out-of-the-box configuration.
func Defaults() Settings {
	return Settings{
		StoreName:           "Nasi Daun Jeruk",
		FooterText:          "Terima kasih telah berbelanja!",
		SyncIntervalSeconds: 30,
		Currency:            "IDR",
		PaperWidth:          80,
		MinOrderAmount:      decimal.NewFromInt(1000),
		MaxOrderAmount:      decimal.NewFromInt(1000000),
	}
}

// View is the public projection of Settings.
type View struct {
	StoreName           string          `json:"store_name"`
	Address             string          `json:"address"`
	Phone               string          `json:"phone"`
	FooterText          string          `json:"footer_text"`
	ScriptURL           string          `json:"script_url"`
	SpreadsheetID       string          `json:"spreadsheet_id"`
	SyncIntervalSeconds int             `json:"sync_interval_seconds"`
	AutoPrint           bool            `json:"auto_print"`
	Currency            string          `json:"currency"`
	PaperWidth          int             `json:"paper_width"`
	MinOrderAmount      decimal.Decimal `json:"min_order_amount"`
	MaxOrderAmount      decimal.Decimal `json:"max_order_amount"`
	OwnerPINSet         bool            `json:"owner_pin_set"`
	CashierPINSet       bool            `json:"cashier_pin_set"`
}

// View strips the PIN hashes.
func (s Settings) View() View {
	return View{
		StoreName:           s.StoreName,
		Address:             s.Address,
		Phone:               s.Phone,
		FooterText:          s.FooterText,
		ScriptURL:           s.ScriptURL,
		SpreadsheetID:       s.SpreadsheetID,
		SyncIntervalSeconds: s.SyncIntervalSeconds,
		AutoPrint:           s.AutoPrint,
		Currency:            s.Currency,
		PaperWidth:          s.PaperWidth,
		MinOrderAmount:      s.MinOrderAmount,
		MaxOrderAmount:      s.MaxOrderAmount,
		OwnerPINSet:         s.OwnerPINHash != "",
		CashierPINSet:       s.CashierPINHash != "",
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	StoreName           *string          `json:"store_name"`
	Address             *string          `json:"address"`
	Phone               *string          `json:"phone"`
	FooterText          *string          `json:"footer_text"`
	ScriptURL           *string          `json:"script_url"`
	SpreadsheetID       *string          `json:"spreadsheet_id"`
	SyncIntervalSeconds *int             `json:"sync_interval_seconds"`
	AutoPrint           *bool            `json:"auto_print"`
	PaperWidth          *int             `json:"paper_width"`
	MinOrderAmount      *decimal.Decimal `json:"min_order_amount"`
	MaxOrderAmount      *decimal.Decimal `json:"max_order_amount"`
}

func (p Patch) apply(s Settings) Settings {
	if p.StoreName != nil {
		s.StoreName = *p.StoreName
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.FooterText != nil {
		s.FooterText = *p.FooterText
	}
	if p.ScriptURL != nil {
		s.ScriptURL = *p.ScriptURL
	}
	if p.SpreadsheetID != nil {
		s.SpreadsheetID = *p.SpreadsheetID
	}
	if p.SyncIntervalSeconds != nil {
		s.SyncIntervalSeconds = *p.SyncIntervalSeconds
	}
	if p.AutoPrint != nil {
		s.AutoPrint = *p.AutoPrint
	}
	if p.PaperWidth != nil {
		s.PaperWidth = *p.PaperWidth
	}
	if p.MinOrderAmount != nil {
		s.MinOrderAmount = *p.MinOrderAmount
	}
	if p.MaxOrderAmount != nil {
		s.MaxOrderAmount = *p.MaxOrderAmount
	}
	return s
}

// Validate checks the editable fields.
func (s Settings) Validate() error {
	if s.ScriptURL != "" {
		u, err := url.Parse(s.ScriptURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.Validation("script_url", ErrInvalidScriptURL)
		}
	}
	if s.SyncIntervalSeconds < 5 {
		return apperr.Validation("sync_interval_seconds", ErrInvalidInterval)
	}
	if s.PaperWidth != 58 && s.PaperWidth != 80 {
		return apperr.Validation("paper_width", ErrInvalidPaper)
	}
	if !s.MinOrderAmount.IsPositive() || s.MaxOrderAmount.LessThan(s.MinOrderAmount) {
		return apperr.Validation("order_limits", ErrInvalidLimits)
	}
	return nil
}

// Service guards the current settings and persists every change.
type Service struct {
	mu      sync.RWMutex
	store   storage.Store
	current Settings
	cost    int
}

// NewService creates a service holding Defaults.
func NewService(store storage.Store) *Service {
	return &Service{store: store, current: Defaults(), cost: bcrypt.DefaultCost}
}

// Load restores persisted settings over the defaults. A missing record keeps
// the defaults.
func (s *Service) Load(ctx context.Context) error {
	loaded := Defaults()
	err := s.store.Load(ctx, storage.KeySettings, &loaded)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Persistence("load", storage.KeySettings, err)
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Get returns the current settings, hashes included.
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ScriptURL returns the configured sync endpoint.
func (s *Service) ScriptURL() string {
	return s.Get().ScriptURL
}

// Update applies p. Invalid patches are rejected without changing anything.
// A persistence failure keeps the new values in memory.
func (s *Service) Update(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.apply(s.current)
	if err := next.Validate(); err != nil {
		return s.current, err
	}
	s.current = next
	return next, s.persistLocked(ctx)
}

// SetPIN hashes pin and stores it for role.
func (s *Service) SetPIN(ctx context.Context, role, pin string) error {
	if !pinPattern.MatchString(pin) {
		return apperr.Validation("pin", ErrInvalidPIN)
	}
	if role != enum.UserRoleOwner && role != enum.UserRoleCashier {
		return apperr.Validation("role", ErrUnknownRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if role == enum.UserRoleOwner {
		s.current.OwnerPINHash = string(hash)
	} else {
		s.current.CashierPINHash = string(hash)
	}
	return s.persistLocked(ctx)
}

// SetOwnerPIN is SetPIN for the owner role.
func (s *Service) SetOwnerPIN(ctx context.Context, pin string) error {
	return s.SetPIN(ctx, enum.UserRoleOwner, pin)
}

// VerifyPIN checks pin against the hash stored for role. A cashier without a
// configured PIN is accepted with any PIN; the owner PIN is always required.
func (s *Service) VerifyPIN(role, pin string) error {
	cur := s.Get()

	var hash string
	switch role {
	case enum.UserRoleOwner:
		hash = cur.OwnerPINHash
		if hash == "" {
			return ErrPINNotSet
		}
	case enum.UserRoleCashier:
		hash = cur.CashierPINHash
		if hash == "" {
			return nil
		}
	default:
		return ErrUnknownRole
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrPINMismatch
	}
	return nil
}

// VerifyOwnerPIN is VerifyPIN for the owner role.
func (s *Service) VerifyOwnerPIN(pin string) error {
	return s.VerifyPIN(enum.UserRoleOwner, pin)
}

func (s *Service) persistLocked(ctx context.Context) error {
	return apperr.Persistence("save", storage.KeySettings, s.store.Save(ctx, storage.KeySettings, s.current))
}
