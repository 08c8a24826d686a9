package domain

import (
	"errors"
	"fmt"
)

// Классы ошибок. Конкретные причины оборачиваются в них через ValidationError, StoreError и т.д.
var (
	// ErrValidation — некорректный ввод, отклоняется до запуска конвейера.
	ErrValidation = errors.New("validation error")
	// ErrStore — ошибка чтения/записи хранилища.
	ErrStore = errors.New("store error")
	// ErrNotification — ошибка доставки уведомления клиенту.
	ErrNotification = errors.New("notification error")
	// ErrRender — ошибка построения или сериализации отчёта.
	ErrRender = errors.New("render error")
)

var (
	// ErrMissingRequiredFields возвращается, если при создании робота не хватает обязательных полей.
	ErrMissingRequiredFields = errors.New("Missing required fields")
	// ErrInvalidDateFormat возвращается, если дату создания робота не удалось разобрать.
	ErrInvalidDateFormat = errors.New("Invalid date format")
	// ErrSerialRequired возвращается для пустого серийного номера.
	ErrSerialRequired = errors.New("serial is required")
	// ErrEmailRequired возвращается, если не указан e-mail клиента.
	ErrEmailRequired = errors.New("email is required")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrRobotAlreadyExists возвращается, если робот с таким ID уже сохранён.
	ErrRobotAlreadyExists = errors.New("robot already exists")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNotWaiting возвращается при переходе для заказа, который уже не ждёт робота.
	ErrOrderNotWaiting = errors.New("order is not waiting")
	// ErrEmptyWorkbook возвращается для книги без листов: её нельзя записать в xlsx.
	ErrEmptyWorkbook = errors.New("workbook has no sheets")
	// ErrOutboxPublish возвращается, если сообщение outbox не удалось опубликовать.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationError оборачивает причину в класс ErrValidation.
func ValidationError(cause error) error {
	return wrapKind(ErrValidation, cause)
}

// StoreError оборачивает причину в класс ErrStore.
func StoreError(cause error) error {
	return wrapKind(ErrStore, cause)
}

// NotificationError оборачивает причину в класс ErrNotification.
func NotificationError(cause error) error {
	return wrapKind(ErrNotification, cause)
}

// RenderError оборачивает причину в класс ErrRender.
func RenderError(cause error) error {
	return wrapKind(ErrRender, cause)
}

func wrapKind(kind, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// IsValidationError проверяет, относится ли ошибка к валидации.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStoreError проверяет, относится ли ошибка к хранилищу.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsNotificationError проверяет, относится ли ошибка к доставке уведомления.
func IsNotificationError(err error) bool {
	return errors.Is(err, ErrNotification)
}

// IsRenderError проверяет, относится ли ошибка к построению отчёта.
func IsRenderError(err error) bool {
	return errors.Is(err, ErrRender)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// Cause возвращает исходное сообщение без префикса класса ошибки.
// Используется для ответов API вида "Database error: <msg>".
func Cause(err error) string {
	if err == nil {
		return ""
	}
	type multi interface{ Unwrap() []error }
	if m, ok := err.(multi); ok {
		parts := m.Unwrap()
		if len(parts) == 2 {
			switch parts[0] {
			case ErrValidation, ErrStore, ErrNotification, ErrRender:
				return parts[1].Error()
			}
		}
	}
	return err.Error()
}
