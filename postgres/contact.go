package postgres

import (
	"context"
	"errors"
	"time"

	"agenda/contact"
	"agenda/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// ContactModel represents the database model for contacts
type ContactModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"not null"`
	Email     string    `gorm:"not null"`
	AreaCode  int       `gorm:"column:ddd;not null"`
	Version   int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ContactRepository implements contact.Repository on top of gorm. Each write
// runs the duplicate check first and relies on the unique indexes of the
// contacts table to catch writers racing past it.
type ContactRepository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewContactRepository(db *gorm.DB, logger *zap.SugaredLogger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func (r *ContactRepository) Add(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	exists, err := r.ExistsByEmailOrPhone(ctx, c.Email, c.Phone, c.AreaCode, nil)
	if err != nil {
		return contact.Contact{}, err
	}
	if exists {
		r.logger.Warnw("duplicate contact rejected", "operation", "add", "ddd", c.AreaCode)
		return contact.Contact{}, contact.ErrDuplicateContact
	}

	model := toContactModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.Warnw("duplicate contact rejected by index", "operation", "add", "ddd", c.AreaCode)
			return contact.Contact{}, contact.ErrDuplicateContact
		}
		r.logger.Errorw("failed to add contact", "operation", "add", "id", c.ID, "error", err)
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, "failed to add contact, check the data and try again")
	}

	return toDomainContact(model), nil
}

// Update writes c only if the stored version still matches c.Version.
func (r *ContactRepository) Update(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	exists, err := r.ExistsByEmailOrPhone(ctx, c.Email, c.Phone, c.AreaCode, &c.ID)
	if err != nil {
		return contact.Contact{}, err
	}
	if exists {
		r.logger.Warnw("duplicate contact rejected", "operation", "update", "id", c.ID)
		return contact.Contact{}, contact.ErrDuplicateOtherContact
	}

	result := r.db.WithContext(ctx).
		Model(&ContactModel{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"name":    c.Name,
			"phone":   c.Phone,
			"email":   c.Email,
			"ddd":     c.AreaCode,
			"version": c.Version + 1,
		})
	if err := result.Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.Warnw("duplicate contact rejected by index", "operation", "update", "id", c.ID)
			return contact.Contact{}, contact.ErrDuplicateOtherContact
		}
		r.logger.Errorw("failed to update contact", "operation", "update", "id", c.ID, "error", err)
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, "failed to update contact, check the data and try again")
	}
	if result.RowsAffected == 0 {
		r.logger.Warnw("stale contact version", "operation", "update", "id", c.ID, "version", c.Version)
		return contact.Contact{}, contact.ErrConcurrentUpdate
	}

	c.Version++
	return c, nil
}

// Remove reports false when there is nothing to delete.
func (r *ContactRepository) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	found, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if found == nil {
		r.logger.Warnw("contact to remove not found", "operation", "remove", "id", id)
		return false, nil
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ContactModel{})
	if err := result.Error; err != nil {
		r.logger.Errorw("failed to remove contact", "operation", "remove", "id", id, "error", err)
		return false, errs.Wrap(errs.EINTERNAL, err, "failed to remove contact, try again")
	}

	return result.RowsAffected > 0, nil
}

// FindByID returns nil without error when no contact has the id.
func (r *ContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*contact.Contact, error) {
	var models []ContactModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&models).Error; err != nil {
		r.logger.Errorw("failed to find contact", "operation", "find_by_id", "id", id, "error", err)
		return nil, errs.Wrap(errs.EINTERNAL, err, "failed to find contact, try again")
	}
	if len(models) == 0 {
		return nil, nil
	}

	c := toDomainContact(models[0])
	return &c, nil
}

func (r *ContactRepository) FindByAreaCode(ctx context.Context, areaCode int) ([]contact.Contact, error) {
	var models []ContactModel
	if err := r.db.WithContext(ctx).Where("ddd = ?", areaCode).Order("name").Find(&models).Error; err != nil {
		r.logger.Errorw("failed to list contacts", "operation", "find_by_area_code", "ddd", areaCode, "error", err)
		return nil, errs.Wrap(errs.EINTERNAL, err, "failed to list contacts, try again")
	}

	contacts := make([]contact.Contact, len(models))
	for i, model := range models {
		contacts[i] = toDomainContact(model)
	}
	return contacts, nil
}

// ExistsByEmailOrPhone reports whether a contact other than excludeID already
// uses email, or the phone within areaCode.
func (r *ContactRepository) ExistsByEmailOrPhone(
	ctx context.Context,
	email, phone string,
	areaCode int,
	excludeID *uuid.UUID,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM contacts WHERE (lower(email) = lower(?) OR (phone = ? AND ddd = ?))`
	args := []interface{}{email, phone, areaCode}
	if excludeID != nil {
		query += ` AND id <> ?`
		args = append(args, *excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&exists).Error; err != nil {
		r.logger.Errorw("failed to check duplicate contact", "operation", "exists_by_email_or_phone", "ddd", areaCode, "error", err)
		return false, errs.Wrap(errs.EINTERNAL, err, "failed to validate contact, try again")
	}

	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func toContactModel(c contact.Contact) ContactModel {
	return ContactModel{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		AreaCode: c.AreaCode,
		Version:  c.Version,
	}
}

func toDomainContact(m ContactModel) contact.Contact {
	return contact.Contact{
		ID:       m.ID,
		Name:     m.Name,
		Phone:    m.Phone,
		Email:    m.Email,
		AreaCode: m.AreaCode,
		Version:  m.Version,
	}
}
