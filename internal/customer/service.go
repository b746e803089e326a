package customer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cox101/Savannah-Microservice/internal/contracts"
	"github.com/cox101/Savannah-Microservice/internal/sms"
)

const maxCodeAttempts = 10

type Service struct {
	repo          Repository
	countryPrefix string
	logger        *slog.Logger
}

func NewService(repo Repository, countryPrefix string, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		countryPrefix: countryPrefix,
		logger:        logger,
	}
}

type CreateInput struct {
	Name        string
	Code        string
	PhoneNumber string
}

type UpdateInput struct {
	Name        string
	PhoneNumber string
}

// Create registers a customer and enqueues a welcome SMS in the same
// transaction. A customer code is generated when the caller does not supply
// one.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	phone, err := sms.NormalizePhone(in.PhoneNumber, s.countryPrefix)
	if err != nil {
		return nil, &ValidationError{Field: "phone_number", Reason: "must be a valid phone number"}
	}

	code := strings.TrimSpace(in.Code)
	if code == "" {
		code, err = s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	c := &Customer{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	welcome := &contracts.NotificationEvent{
		EventID:      uuid.New().String(),
		Type:         contracts.EventCustomerWelcome,
		CustomerID:   c.ID.String(),
		CustomerName: c.Name,
		CustomerCode: c.Code,
		PhoneNumber:  c.PhoneNumber,
		OccurredAt:   now,
	}

	if err := s.repo.Create(ctx, c, welcome); err != nil {
		return nil, err
	}

	s.logger.Info("customer created", "customer_id", c.ID, "code", c.Code)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.PhoneNumber != "" {
		phone, err := sms.NormalizePhone(in.PhoneNumber, s.countryPrefix)
		if err != nil {
			return nil, &ValidationError{Field: "phone_number", Reason: "must be a valid phone number"}
		}
		c.PhoneNumber = phone
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) generateCode(ctx context.Context) (string, error) {
	for range maxCodeAttempts {
		code := fmt.Sprintf("CUST%06d", rand.IntN(1000000))
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique customer code")
}
