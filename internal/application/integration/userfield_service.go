package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// UserFieldService provisions string-typed user fields on the CRM deal object
type UserFieldService struct {
	crm      integration.UserFieldCRM
	logger   *zap.Logger
	recorder SyncRecorder
}

// NewUserFieldService creates a new UserFieldService
func NewUserFieldService(crm integration.UserFieldCRM, logger *zap.Logger) (*UserFieldService, error) {
	if crm == nil {
		return nil, integration.ErrCRMNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserFieldService{
		crm:      crm,
		logger:   logger,
		recorder: nopRecorder{},
	}, nil
}

// SetRecorder attaches a metrics recorder
func (s *UserFieldService) SetRecorder(r SyncRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// Exists reports whether the deal object already has a field named fieldName.
// The name is normalised first, so "DELIVERY_CODE" checks UF_CRM_DELIVERY_CODE.
func (s *UserFieldService) Exists(ctx context.Context, fieldName string) (bool, error) {
	name, err := integration.NormalizeUserFieldName(fieldName)
	if err != nil {
		return false, err
	}

	names, err := s.crm.ListDealFieldNames(ctx)
	if err != nil {
		return false, fmt.Errorf("list deal fields: %w", err)
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// Ensure creates every missing field in names. Fields that already exist are
// left untouched, so running it again is a no-op.
func (s *UserFieldService) Ensure(ctx context.Context, names []string) (result *integration.UserFieldResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, JobUserFields, "ensure")
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
			s.recorder.RecordWrites(ctx, JobUserFields, len(result.Created))
		}
		s.recorder.RecordRun(ctx, JobUserFields, err, time.Since(start))
	}()

	fields := make([]integration.UserField, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		field, err := integration.NewStringUserField(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[field.FieldName]; dup {
			continue
		}
		seen[field.FieldName] = struct{}{}
		fields = append(fields, field)
	}

	result = &integration.UserFieldResult{Created: []string{}, Existing: []string{}}
	for _, field := range fields {
		exists, err := s.Exists(ctx, field.FieldName)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Existing = append(result.Existing, field.FieldName)
			s.logger.Debug("User field already exists", zap.String("field", field.FieldName))
			continue
		}

		if err := s.crm.AddDealUserField(ctx, field); err != nil {
			return nil, fmt.Errorf("add user field %s: %w", field.FieldName, err)
		}
		result.Created = append(result.Created, field.FieldName)
		s.logger.Info("User field created",
			zap.String("field", field.FieldName),
			zap.String("type", field.UserTypeID),
		)
	}
	return result, nil
}
