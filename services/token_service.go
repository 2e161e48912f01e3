package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/events"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/qrimg"
	"github.com/iqbalhamzah/dinelink/utils"
)

// TokenService owns the lifecycle of per-table QR tokens: issue,
// validate, rotate on settlement, sweep expired rows. At most one token
// per table is active at any time.
type TokenService struct {
	db      *gorm.DB
	ttl     time.Duration
	baseURL string
	qr      *qrimg.Client
}

// Rotation records a completed token swap so post-commit side effects
// (QR artifact cleanup, dashboard events) can run outside the transaction.
type Rotation struct {
	TableID    uint
	NewToken   *models.QRToken
	Superseded []string
}

func NewTokenService(db *gorm.DB, cfg config.Config, qr *qrimg.Client) *TokenService {
	return &TokenService{
		db:      db,
		ttl:     cfg.QRTokenTTL,
		baseURL: cfg.BaseURL,
		qr:      qr,
	}
}

// Issue replaces whatever token a table currently has with a fresh one.
func (s *TokenService) Issue(tableID uint) (*models.QRToken, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	rotation, err := s.IssueTx(tx, tableID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit token issue: %w", err)
	}

	s.FinishRotation(rotation)
	return rotation.NewToken, nil
}

// IssueTx deactivates any active token for the table and persists a new
// one inside the caller's transaction. The returned Rotation must be
// passed to FinishRotation after commit.
func (s *TokenService) IssueTx(tx *gorm.DB, tableID uint) (*Rotation, error) {
	var table models.Table
	if err := tx.First(&table, tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	var superseded []string
	if err := tx.Model(&models.QRToken{}).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Pluck("token", &superseded).Error; err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}

	// Optimistic guard: only rows still active get flipped, so two
	// concurrent rotations cannot both claim the same token.
	if err := tx.Model(&models.QRToken{}).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate tokens: %w", err)
	}

	opaque, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := models.QRToken{
		Token:     opaque,
		TableID:   tableID,
		IsActive:  true,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &Rotation{TableID: tableID, NewToken: &token, Superseded: superseded}, nil
}

// Validate reports whether the presented token is the table's current
// one. Read-only; the comparison is constant-time.
func (s *TokenService) Validate(tableID uint, presented string) (*models.QRToken, error) {
	var tokens []models.QRToken
	if err := s.db.
		Where("table_id = ? AND is_active = ?", tableID, true).
		Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	now := time.Now()
	for i := range tokens {
		if subtle.ConstantTimeCompare([]byte(tokens[i].Token), []byte(presented)) == 1 {
			if tokens[i].Expired(now) {
				return nil, ErrTokenExpired
			}
			return &tokens[i], nil
		}
	}
	return nil, ErrTokenNotFound
}

// InvalidateOnPayment marks the settled token inactive, stamps
// payment_completed_at and immediately issues a replacement so the next
// diner at the table gets a fresh session. Runs in its own transaction.
func (s *TokenService) InvalidateOnPayment(token string) (*models.QRToken, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	rotation, err := s.InvalidateOnPaymentTx(tx, token)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit token rotation: %w", err)
	}

	s.FinishRotation(rotation)
	return rotation.NewToken, nil
}

// InvalidateOnPaymentTx is the transactional body of InvalidateOnPayment.
// Re-running it after a crash is safe: a token already deactivated just
// triggers a fresh issue for its table, so a table never stays tokenless.
func (s *TokenService) InvalidateOnPaymentTx(tx *gorm.DB, token string) (*Rotation, error) {
	var record models.QRToken
	if err := tx.Where("token = ?", token).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	now := time.Now()
	res := tx.Model(&models.QRToken{}).
		Where("token = ? AND is_active = ?", token, true).
		Updates(map[string]interface{}{
			"is_active":            false,
			"payment_completed_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to invalidate token: %w", res.Error)
	}
	// RowsAffected == 0 means another request (or a recovery re-run)
	// already deactivated it; reissue is still the right move.

	return s.IssueTx(tx, record.TableID)
}

// FinishRotation runs the side effects of a committed rotation: delete
// superseded QR artifacts, render the new one, tell the dashboards.
// All best-effort; failures are logged, never propagated.
func (s *TokenService) FinishRotation(rotation *Rotation) {
	if rotation == nil || rotation.NewToken == nil {
		return
	}

	events.BroadcastTokenRotated(rotation.TableID, rotation.NewToken.Token)

	if s.qr == nil {
		return
	}
	go func(r Rotation) {
		for _, old := range r.Superseded {
			if err := s.qr.DeleteForToken(old); err != nil {
				utils.ErrorLogger.Printf("Failed to delete QR artifact for token %s: %v", old, err)
			}
		}
		payload := fmt.Sprintf("%s/tables/%d/scan?token=%s", s.baseURL, r.TableID, r.NewToken.Token)
		if _, err := s.qr.SaveForToken(r.NewToken.Token, payload); err != nil {
			utils.ErrorLogger.Printf("Failed to render QR artifact for table %d: %v", r.TableID, err)
		}
	}(*rotation)
}

// StartExpirySweeper launches the housekeeping goroutine. Expiry is a
// computed predicate so nothing depends on the sweep; it only tidies
// rows and stale artifacts.
func (s *TokenService) StartExpirySweeper() {
	go s.expirySweeper()
	utils.InfoLogger.Println("QR token expiry sweeper started")
}

func (s *TokenService) expirySweeper() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.SweepExpired()
	}
}

// SweepExpired deactivates active rows whose expiry has passed and
// drops their QR artifacts.
func (s *TokenService) SweepExpired() {
	var expired []models.QRToken
	if err := s.db.
		Where("is_active = ? AND expires_at <= ?", true, time.Now()).
		Find(&expired).Error; err != nil {
		utils.ErrorLogger.Printf("Token sweep query failed: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	ids := make([]uint, 0, len(expired))
	for _, t := range expired {
		ids = append(ids, t.ID)
	}
	if err := s.db.Model(&models.QRToken{}).
		Where("id IN ?", ids).
		Update("is_active", false).Error; err != nil {
		utils.ErrorLogger.Printf("Token sweep update failed: %v", err)
		return
	}

	if s.qr != nil {
		for _, t := range expired {
			if err := s.qr.DeleteForToken(t.Token); err != nil {
				utils.ErrorLogger.Printf("Failed to delete QR artifact for expired token %s: %v", t.Token, err)
			}
		}
	}
	utils.InfoLogger.Printf("Token sweep deactivated %d expired tokens", len(expired))
}

// generateOpaqueToken returns 16 cryptographically random bytes as hex.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
