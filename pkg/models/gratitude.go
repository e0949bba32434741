package models

import (
	"errors"
	"time"
)

// GratitudeType тип благодарности
type GratitudeType string

const (
	GratitudeThankYouCall     GratitudeType = "thank_you_call"
	GratitudeThankYouMessage  GratitudeType = "thank_you_message"
	GratitudeGift             GratitudeType = "gift"
	GratitudeMealInvitation   GratitudeType = "meal_invitation"
	GratitudeEventInvitation  GratitudeType = "event_invitation"
	GratitudeHolidayGreeting  GratitudeType = "holiday_greeting"
	GratitudeBirthdayGreeting GratitudeType = "birthday_greeting"
	GratitudeCustom           GratitudeType = "custom"
)

// GiftType тип подарка
type GiftType string

const (
	GiftFlowers         GiftType = "flowers"
	GiftFoodVoucher     GiftType = "food_voucher"
	GiftCoffeeVoucher   GiftType = "coffee_voucher"
	GiftDepartmentStore GiftType = "department_store"
	GiftFruitBasket     GiftType = "fruit_basket"
	GiftHealthProduct   GiftType = "health_product"
	GiftBook            GiftType = "book"
	GiftCustom          GiftType = "custom"
)

// GratitudeStatus статус благодарности
type GratitudeStatus string

const (
	GratitudeStatusPlanned   GratitudeStatus = "planned"
	GratitudeStatusScheduled GratitudeStatus = "scheduled"
	GratitudeStatusSent      GratitudeStatus = "sent"
	GratitudeStatusDelivered GratitudeStatus = "delivered"
	GratitudeStatusCompleted GratitudeStatus = "completed"
	GratitudeStatusCancelled GratitudeStatus = "cancelled"
	GratitudeStatusFailed    GratitudeStatus = "failed"
)

// ErrInvalidStatusTransition недопустимый переход статуса благодарности
var ErrInvalidStatusTransition = errors.New("недопустимый переход статуса благодарности")

// IsValid проверяет валидность статуса
func (s GratitudeStatus) IsValid() bool {
	switch s {
	case GratitudeStatusPlanned, GratitudeStatusScheduled, GratitudeStatusSent,
		GratitudeStatusDelivered, GratitudeStatusCompleted,
		GratitudeStatusCancelled, GratitudeStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что из статуса нет переходов
func (s GratitudeStatus) IsTerminal() bool {
	return s == GratitudeStatusCompleted || s == GratitudeStatusCancelled || s == GratitudeStatusFailed
}

// IsSent сообщает, что благодарность уже отправлена адресату
func (s GratitudeStatus) IsSent() bool {
	return s == GratitudeStatusSent || s == GratitudeStatusDelivered || s == GratitudeStatusCompleted
}

func (s GratitudeStatus) step() int {
	switch s {
	case GratitudeStatusPlanned:
		return 0
	case GratitudeStatusScheduled:
		return 1
	case GratitudeStatusSent:
		return 2
	case GratitudeStatusDelivered:
		return 3
	case GratitudeStatusCompleted:
		return 4
	default:
		return -1
	}
}

// CanTransitionTo проверяет, разрешен ли переход статуса.
// Статусы двигаются только вперед; cancelled и failed доступны до завершения.
func (s GratitudeStatus) CanTransitionTo(next GratitudeStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() || s == next {
		return false
	}
	if next == GratitudeStatusCancelled || next == GratitudeStatusFailed {
		return true
	}
	// delivered и completed равноправны как конец доставки
	if next == GratitudeStatusCompleted {
		return s.step() >= GratitudeStatusSent.step()
	}
	return next.step() == s.step()+1
}

// GratitudeRecord запись об отправленной благодарности
type GratitudeRecord struct {
	ID                  string          `json:"id" db:"id"`
	AgentID             string          `json:"agent_id" db:"agent_id"`
	InfluencerID        string          `json:"influencer_id" db:"influencer_id"`
	GratitudeType       GratitudeType   `json:"gratitude_type" db:"gratitude_type"`
	GiftType            *GiftType       `json:"gift_type,omitempty" db:"gift_type"`
	Title               string          `json:"title" db:"title"`
	Message             string          `json:"message" db:"message"`
	PersonalizedMessage *string         `json:"personalized_message,omitempty" db:"personalized_message"`
	ScheduledDate       *time.Time      `json:"scheduled_date,omitempty" db:"scheduled_date"`
	SentDate            *time.Time      `json:"sent_date,omitempty" db:"sent_date"`
	DeliveredDate       *time.Time      `json:"delivered_date,omitempty" db:"delivered_date"`
	Status              GratitudeStatus `json:"status" db:"status"`
	Cost                *float64        `json:"cost,omitempty" db:"cost"`
	Vendor              *string         `json:"vendor,omitempty" db:"vendor"`
	TrackingNumber      *string         `json:"tracking_number,omitempty" db:"tracking_number"`
	RecipientFeedback   *string         `json:"recipient_feedback,omitempty" db:"recipient_feedback"`
	IsRecurring         bool            `json:"is_recurring" db:"is_recurring"`
	RecurringInterval   *int            `json:"recurring_interval,omitempty" db:"recurring_interval"`
	NextScheduledDate   *time.Time      `json:"next_scheduled_date,omitempty" db:"next_scheduled_date"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// GratitudeForm данные формы создания благодарности
type GratitudeForm struct {
	ClientID            string        `json:"client_id" validate:"required"`
	GratitudeType       GratitudeType `json:"gratitude_type" validate:"required,oneof=thank_you_call thank_you_message gift meal_invitation event_invitation holiday_greeting birthday_greeting custom"`
	GiftType            *GiftType     `json:"gift_type,omitempty" validate:"omitempty,oneof=flowers food_voucher coffee_voucher department_store fruit_basket health_product book custom"`
	Title               string        `json:"title" validate:"required,min=2,max=200"`
	Message             string        `json:"message" validate:"required,min=10,max=2000"`
	PersonalizedMessage *string       `json:"personalized_message,omitempty" validate:"omitempty,max=2000"`
	ScheduledDate       *time.Time    `json:"scheduled_date,omitempty"`
	Cost                *float64      `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Vendor              *string       `json:"vendor,omitempty" validate:"omitempty,max=200"`
	IsRecurring         bool          `json:"is_recurring"`
	RecurringInterval   *int          `json:"recurring_interval,omitempty" validate:"omitempty,gte=1,lte=365"`
}

// GratitudeHistoryItem элемент истории благодарностей для отображения
type GratitudeHistoryItem struct {
	ID             string          `json:"id"`
	InfluencerID   string          `json:"influencer_id"`
	ClientID       string          `json:"client_id"`
	InfluencerName string          `json:"influencer_name"`
	GratitudeType  GratitudeType   `json:"gratitude_type"`
	GiftType       *GiftType       `json:"gift_type,omitempty"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	Status         GratitudeStatus `json:"status"`
	ScheduledDate  *time.Time      `json:"scheduled_date,omitempty"`
	SentDate       *time.Time      `json:"sent_date,omitempty"`
	DeliveredDate  *time.Time      `json:"delivered_date,omitempty"`
	Cost           *float64        `json:"cost,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// GratitudeStats статистика благодарностей агента
type GratitudeStats struct {
	TotalSent        int     `json:"total_sent"`
	TotalCost        float64 `json:"total_cost"`
	MonthlyFrequency float64 `json:"monthly_frequency"`
}

// GratitudeCreated данные успешно созданной благодарности
type GratitudeCreated struct {
	ID     string          `json:"id"`
	Status GratitudeStatus `json:"status"`
}

// GratitudeResult конверт результата создания благодарности
type GratitudeResult struct {
	Success     bool              `json:"success"`
	Data        *GratitudeCreated `json:"data,omitempty"`
	Error       string            `json:"error,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Коды ошибок результата
const (
	GratitudeErrorValidation = "validation_error"
	GratitudeErrorNotFound   = "not_found"
	GratitudeErrorStorage    = "storage_error"
)
