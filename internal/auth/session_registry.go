package auth

import (
	"context"
	"time"

	"github.com/franciscosanchezn/credex-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientTypeGeneric is the default client category when the client declares
// none.
const ClientTypeGeneric = "generic"

// SessionRegistry tracks connected clients. Sessions are never deleted:
// deactivation is terminal for use but the row stays for audit.
type SessionRegistry struct {
	db *gorm.DB
}

func NewSessionRegistry(db *gorm.DB) *SessionRegistry {
	return &SessionRegistry{db: db}
}

// OpenOrReuse returns the active session for clientID, refreshed with the
// latest declared identity and key hash, or creates a new one. Matching is
// by client_id alone; declared identity fields are advisory and follow the
// newest grant. A deactivated session is never reactivated, a new row is
// created instead.
func (r *SessionRegistry) OpenOrReuse(ctx context.Context, clientID, clientName, clientVersion, clientType, apiKeyHash string) (*models.Session, error) {
	if clientType == "" {
		clientType = ClientTypeGeneric
	}

	now := time.Now()
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", clientID, true).
		First(&session).Error
	if err == nil {
		session.ClientName = clientName
		session.ClientVersion = clientVersion
		session.ClientType = clientType
		session.ApiKeyHash = apiKeyHash
		session.LastActivity = now
		if err := r.db.WithContext(ctx).Save(&session).Error; err != nil {
			return nil, storeErr(err)
		}
		return &session, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, storeErr(err)
	}

	session = models.Session{
		ID:            uuid.New().String(),
		ClientID:      clientID,
		ClientName:    clientName,
		ClientVersion: clientVersion,
		ClientType:    clientType,
		ApiKeyHash:    apiKeyHash,
		CreatedAt:     now,
		LastActivity:  now,
		IsActive:      true,
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, storeErr(err)
	}
	return &session, nil
}

// Get looks up a session by id regardless of its active flag.
func (r *SessionRegistry) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, storeErr(err)
	}
	return &session, nil
}

// Touch refreshes last_activity; called on every authorized request.
// Touching a deactivated session fails with ErrInactive, distinct from
// ErrNotFound, so callers can reject requests on a revoked session.
func (r *SessionRegistry) Touch(ctx context.Context, sessionID string) error {
	session, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.IsActive {
		return ErrInactive
	}

	err = r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("last_activity", time.Now()).Error
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// Deactivate turns a session off without deleting it. Idempotent: a second
// call is a no-op, an unknown id is ErrNotFound.
func (r *SessionRegistry) Deactivate(ctx context.Context, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("is_active", false)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// Update matched no row; distinguish unknown from already-inactive
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
			return storeErr(err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
