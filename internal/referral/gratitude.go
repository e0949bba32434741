package referral

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/store"
	"surecrm-network/pkg/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultHistoryLimit размер истории благодарностей по умолчанию
const DefaultHistoryLimit = 10

var (
	// ErrHistoryUnavailable историю благодарностей не удалось получить
	ErrHistoryUnavailable = errors.New("история благодарностей недоступна")
	// ErrGratitudeUnavailable благодарность не удалось прочитать или обновить
	ErrGratitudeUnavailable = errors.New("не удалось обновить благодарность, попробуйте позже")
)

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках используются имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateForm возвращает ошибки по полям формы; пустая карта означает валидную форму
func (s *Service) validateForm(form *models.GratitudeForm) map[string]string {
	fieldErrors := make(map[string]string)

	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fieldErrors["form"] = err.Error()
			return fieldErrors
		}
		for _, fe := range verrs {
			fieldErrors[fe.Field()] = fieldMessage(fe)
		}
	}

	if form.IsRecurring && form.RecurringInterval == nil {
		fieldErrors["recurring_interval"] = "обязательное поле для повторяющейся благодарности"
	}

	return fieldErrors
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("минимум %s символов", fe.Param())
		}
		return fmt.Sprintf("значение должно быть не меньше %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("максимум %s символов", fe.Param())
		}
		return fmt.Sprintf("значение должно быть не больше %s", fe.Param())
	case "gte":
		return fmt.Sprintf("значение должно быть не меньше %s", fe.Param())
	case "lte":
		return fmt.Sprintf("значение должно быть не больше %s", fe.Param())
	case "oneof":
		return "недопустимое значение"
	default:
		return "некорректное значение"
	}
}

// CreateGratitude создает благодарность влиятельному клиенту.
// Ошибки не возвращаются, а передаются в конверте результата.
func (s *Service) CreateGratitude(ctx context.Context, tenantID string, form models.GratitudeForm) models.GratitudeResult {
	started := time.Now()
	var opErr error
	defer func() { s.metrics.ObserveOperation(metrics.OpCreateGratitude, started, opErr) }()

	form.Title = strings.TrimSpace(form.Title)
	form.Message = strings.TrimSpace(form.Message)

	if fieldErrors := s.validateForm(&form); len(fieldErrors) > 0 {
		return models.GratitudeResult{
			Success:     false,
			Error:       models.GratitudeErrorValidation,
			Message:     "проверьте заполнение формы",
			FieldErrors: fieldErrors,
		}
	}

	profile, err := s.influencers.GetProfileByClientID(ctx, tenantID, form.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.GratitudeResult{
				Success: false,
				Error:   models.GratitudeErrorNotFound,
				Message: "профиль влиятельного клиента не найден",
			}
		}
		opErr = err
		s.logger.Error("ошибка получения профиля для благодарности",
			zap.String("tenant_id", tenantID),
			zap.String("client_id", form.ClientID),
			zap.Error(err))
		return storageFailure()
	}

	record := s.newGratitudeRecord(tenantID, profile.ID, &form)

	action := models.ActivityGratitudeSent
	if record.Status == models.GratitudeStatusScheduled {
		action = models.ActivityGratitudeScheduled
	}
	metadata := map[string]interface{}{
		"gratitude_id":   record.ID,
		"gratitude_type": string(record.GratitudeType),
		"status":         string(record.Status),
	}
	if record.GiftType != nil {
		metadata["gift_type"] = string(*record.GiftType)
	}
	if record.Cost != nil {
		metadata["cost"] = *record.Cost
	}
	activity := &models.ActivityLog{
		ID:           s.newID(),
		AgentID:      tenantID,
		InfluencerID: profile.ID,
		ClientID:     profile.ClientID,
		Action:       action,
		Description:  record.Title,
		Metadata:     metadata,
		CreatedAt:    record.CreatedAt,
	}

	if err := s.gratitude.CreateWithActivity(ctx, record, activity); err != nil {
		opErr = err
		s.logger.Error("ошибка сохранения благодарности",
			zap.String("tenant_id", tenantID),
			zap.String("influencer_id", profile.ID),
			zap.Error(err))
		return storageFailure()
	}

	s.invalidate(ctx, tenantID)
	s.metrics.RecordGratitude(string(record.Status))

	s.logger.Info("благодарность создана",
		zap.String("tenant_id", tenantID),
		zap.String("gratitude_id", record.ID),
		zap.String("status", string(record.Status)))

	return models.GratitudeResult{
		Success: true,
		Data: &models.GratitudeCreated{
			ID:     record.ID,
			Status: record.Status,
		},
		Message: "благодарность сохранена",
	}
}

// newGratitudeRecord собирает запись: будущая дата дает scheduled, иначе sent
func (s *Service) newGratitudeRecord(tenantID, influencerID string, form *models.GratitudeForm) *models.GratitudeRecord {
	now := s.now()

	record := &models.GratitudeRecord{
		ID:                  s.newID(),
		AgentID:             tenantID,
		InfluencerID:        influencerID,
		GratitudeType:       form.GratitudeType,
		GiftType:            form.GiftType,
		Title:               form.Title,
		Message:             form.Message,
		PersonalizedMessage: form.PersonalizedMessage,
		ScheduledDate:       form.ScheduledDate,
		Cost:                form.Cost,
		Vendor:              form.Vendor,
		IsRecurring:         form.IsRecurring,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if form.ScheduledDate != nil && form.ScheduledDate.After(now) {
		record.Status = models.GratitudeStatusScheduled
	} else {
		record.Status = models.GratitudeStatusSent
		sent := now
		record.SentDate = &sent
	}

	if form.IsRecurring && form.RecurringInterval != nil {
		interval := *form.RecurringInterval
		record.RecurringInterval = &interval

		base := now
		if form.ScheduledDate != nil {
			base = *form.ScheduledDate
		}
		next := base.AddDate(0, 0, interval)
		record.NextScheduledDate = &next
	}

	return record
}

func storageFailure() models.GratitudeResult {
	return models.GratitudeResult{
		Success: false,
		Error:   models.GratitudeErrorStorage,
		Message: "не удалось сохранить благодарность, попробуйте позже",
	}
}

// UpdateGratitudeStatus переводит благодарность в новый статус.
// Разрешены только переходы вперед, cancelled и failed доступны до завершения.
func (s *Service) UpdateGratitudeStatus(ctx context.Context, tenantID, gratitudeID string, status models.GratitudeStatus) (*models.GratitudeRecord, error) {
	record, err := s.gratitude.GetByID(ctx, tenantID, gratitudeID)
	if err != nil {
		return nil, s.gratitudeFailure(tenantID, gratitudeID, "ошибка получения благодарности", err)
	}

	if !record.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidStatusTransition, record.Status, status)
	}

	now := s.now()
	record.UpdatedAt = now

	activity := &models.ActivityLog{
		ID:           s.newID(),
		AgentID:      tenantID,
		InfluencerID: record.InfluencerID,
		Action:       models.ActivityGratitudeStatus,
		Description:  record.Title,
		Metadata: map[string]interface{}{
			"gratitude_id": record.ID,
			"from":         string(record.Status),
			"to":           string(status),
		},
		CreatedAt: now,
	}

	if err := s.gratitude.UpdateStatus(ctx, record, status, activity); err != nil {
		return nil, s.gratitudeFailure(tenantID, gratitudeID, "ошибка обновления статуса благодарности", err)
	}

	switch status {
	case models.GratitudeStatusSent:
		if record.SentDate == nil {
			record.SentDate = &now
		}
	case models.GratitudeStatusDelivered:
		record.DeliveredDate = &now
	}
	record.Status = status

	s.invalidate(ctx, tenantID)

	s.logger.Info("статус благодарности изменен",
		zap.String("tenant_id", tenantID),
		zap.String("gratitude_id", gratitudeID),
		zap.String("status", string(status)))

	return record, nil
}

// gratitudeFailure пропускает ErrNotFound, остальные ошибки хранилища логирует
// и заменяет на ErrGratitudeUnavailable
func (s *Service) gratitudeFailure(tenantID, gratitudeID, msg string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("благодарность %s: %w", gratitudeID, store.ErrNotFound)
	}
	s.logger.Error(msg,
		zap.String("tenant_id", tenantID),
		zap.String("gratitude_id", gratitudeID),
		zap.Error(err))
	return ErrGratitudeUnavailable
}

// GetGratitudeHistory возвращает последние благодарности агента
func (s *Service) GetGratitudeHistory(ctx context.Context, tenantID string, limit int) (result []models.GratitudeHistoryItem, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(metrics.OpGratitudeHistory, started, err) }()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	key := cache.GratitudeHistoryKey(tenantID, limit)
	var cached []models.GratitudeHistoryItem
	if s.cached(ctx, metrics.OpGratitudeHistory, key, &cached) {
		return cached, nil
	}

	items, err := s.gratitude.GetHistory(ctx, tenantID, limit)
	if err != nil {
		s.logger.Error("ошибка получения истории благодарностей",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, ErrHistoryUnavailable
	}

	s.remember(ctx, key, items)

	return items, nil
}
