package contact

import (
	"context"

	"agenda/errs"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	CreateContact(ctx context.Context, name, phone, email string, areaCode int) (Contact, error)
	UpdateContact(ctx context.Context, id uuid.UUID, name, phone, email string, areaCode int) (Contact, error)
	RemoveContact(ctx context.Context, id uuid.UUID) (bool, error)
	GetContactByID(ctx context.Context, id uuid.UUID) (Contact, error)
	GetContactsByAreaCode(ctx context.Context, areaCode int) ([]Contact, error)
}

// Repository is the persistence port for contacts. Implementations own the
// duplicate check performed before every write.
type Repository interface {
	Add(ctx context.Context, c Contact) (Contact, error)
	Update(ctx context.Context, c Contact) (Contact, error)
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	FindByAreaCode(ctx context.Context, areaCode int) ([]Contact, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string, areaCode int, excludeID *uuid.UUID) (bool, error)
}

type Usecase struct {
	r      Repository
	logger *zap.SugaredLogger
}

func NewUsecase(r Repository, logger *zap.SugaredLogger) *Usecase {
	return &Usecase{
		r:      r,
		logger: logger,
	}
}

// CreateContact checks for duplicates before delegating to the repository,
// which checks again on its own.
func (uc *Usecase) CreateContact(ctx context.Context, name, phone, email string, areaCode int) (Contact, error) {
	uc.logger.Infow("creating contact", "ddd", areaCode)

	c := New(name, phone, email, areaCode)
	if err := c.Validate(); err != nil {
		return Contact{}, err
	}

	exists, err := uc.r.ExistsByEmailOrPhone(ctx, c.Email, c.Phone, c.AreaCode, nil)
	if err != nil {
		return Contact{}, err
	}
	if exists {
		uc.logger.Warnw("contact already registered", "ddd", areaCode)
		return Contact{}, ErrContactAlreadyRegistered
	}

	return uc.r.Add(ctx, c)
}

func (uc *Usecase) UpdateContact(ctx context.Context, id uuid.UUID, name, phone, email string, areaCode int) (Contact, error) {
	uc.logger.Infow("updating contact", "id", id)

	existing, err := uc.find(ctx, id)
	if err != nil {
		return Contact{}, err
	}

	existing.Update(name, phone, email, areaCode)
	if err := existing.Validate(); err != nil {
		return Contact{}, err
	}

	return uc.r.Update(ctx, *existing)
}

func (uc *Usecase) RemoveContact(ctx context.Context, id uuid.UUID) (bool, error) {
	uc.logger.Infow("removing contact", "id", id)

	if _, err := uc.find(ctx, id); err != nil {
		return false, err
	}

	removed, err := uc.r.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	if !removed {
		// The row vanished between the lookup and the delete.
		uc.logger.Errorw("contact disappeared before removal", "id", id)
		return false, errs.Errorf(errs.EINTERNAL, "failed to remove contact")
	}

	return true, nil
}

func (uc *Usecase) GetContactByID(ctx context.Context, id uuid.UUID) (Contact, error) {
	c, err := uc.find(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	return *c, nil
}

func (uc *Usecase) GetContactsByAreaCode(ctx context.Context, areaCode int) ([]Contact, error) {
	if !ValidAreaCode(areaCode) {
		return nil, ErrInvalidAreaCode
	}

	contacts, err := uc.r.FindByAreaCode(ctx, areaCode)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		uc.logger.Warnw("no contacts found for area code", "ddd", areaCode)
		return []Contact{}, nil
	}

	return contacts, nil
}

func (uc *Usecase) find(ctx context.Context, id uuid.UUID) (*Contact, error) {
	c, err := uc.r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		uc.logger.Warnw("contact not found", "id", id)
		return nil, ErrContactNotFound
	}
	return c, nil
}
