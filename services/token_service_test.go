package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

func setupTokenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Table{},
		&models.QRToken{},
		&models.DinerSession{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db.Create(&models.Table{TableNumber: "T1", Status: models.TableStatusActive})
	return db
}

func newTokenService(db *gorm.DB) *TokenService {
	cfg := config.Config{QRTokenTTL: 2 * time.Hour, BaseURL: "http://localhost:8080"}
	return NewTokenService(db, cfg, nil)
}

func TestIssueReplacesActiveToken(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	first, err := svc.Issue(1)
	assert.NoError(t, err)
	assert.Len(t, first.Token, 32) // 16 random bytes as hex

	second, err := svc.Issue(1)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// Exactly one active token per table, always.
	var active int64
	db.Model(&models.QRToken{}).Where("table_id = ? AND is_active = ?", 1, true).Count(&active)
	assert.Equal(t, int64(1), active)

	// The superseded row stays on disk, just inactive.
	var total int64
	db.Model(&models.QRToken{}).Where("table_id = ?", 1).Count(&total)
	assert.Equal(t, int64(2), total)
}

func TestIssueUnknownTable(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	_, err := svc.Issue(99)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestValidate(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	issued, err := svc.Issue(1)
	assert.NoError(t, err)

	record, err := svc.Validate(1, issued.Token)
	assert.NoError(t, err)
	assert.Equal(t, issued.Token, record.Token)

	_, err = svc.Validate(1, "0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateExpiredToken(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	issued, err := svc.Issue(1)
	assert.NoError(t, err)

	// Force the expiry into the past; validate treats expiry as a
	// computed predicate, no stored state flips.
	db.Model(&models.QRToken{}).Where("id = ?", issued.ID).
		Update("expires_at", time.Now().Add(-time.Minute))

	_, err = svc.Validate(1, issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestInvalidateOnPaymentRotates(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	issued, err := svc.Issue(1)
	assert.NoError(t, err)

	rotated, err := svc.InvalidateOnPayment(issued.Token)
	assert.NoError(t, err)
	assert.NotEqual(t, issued.Token, rotated.Token)

	// Old token no longer validates.
	_, err = svc.Validate(1, issued.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// New token does, and is the only active one.
	_, err = svc.Validate(1, rotated.Token)
	assert.NoError(t, err)

	var active int64
	db.Model(&models.QRToken{}).Where("table_id = ? AND is_active = ?", 1, true).Count(&active)
	assert.Equal(t, int64(1), active)

	// Settlement stamped the old row.
	var old models.QRToken
	db.Where("token = ?", issued.Token).First(&old)
	assert.False(t, old.IsActive)
	assert.NotNil(t, old.PaymentCompletedAt)
}

func TestInvalidateOnPaymentIdempotentRerun(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	issued, err := svc.Issue(1)
	assert.NoError(t, err)

	_, err = svc.InvalidateOnPayment(issued.Token)
	assert.NoError(t, err)

	// Re-running against the already-deactivated token still leaves the
	// table with exactly one active token.
	_, err = svc.InvalidateOnPayment(issued.Token)
	assert.NoError(t, err)

	var active int64
	db.Model(&models.QRToken{}).Where("table_id = ? AND is_active = ?", 1, true).Count(&active)
	assert.Equal(t, int64(1), active)
}

func TestSweepExpired(t *testing.T) {
	db := setupTokenTestDB(t)
	svc := newTokenService(db)

	issued, err := svc.Issue(1)
	assert.NoError(t, err)
	db.Model(&models.QRToken{}).Where("id = ?", issued.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	svc.SweepExpired()

	var record models.QRToken
	db.Where("id = ?", issued.ID).First(&record)
	assert.False(t, record.IsActive)
}
