package domain

import "time"

// Robot описывает произведённого робота на складе.
type Robot struct {
	ID      string
	Model   string
	Version string
	// Serial выводится из модели и версии, см. SerialOf.
	Serial  string
	Created time.Time
}

// SerialOf формирует серийный номер робота: модель + версия.
func SerialOf(model, version string) string {
	return model + version
}

// NewRobot собирает робота и вычисляет серийный номер.
func NewRobot(id, model, version string, created time.Time) Robot {
	return Robot{
		ID:      id,
		Model:   model,
		Version: version,
		Serial:  SerialOf(model, version),
		Created: created,
	}
}

// ValidateInvariants проверяет обязательные поля робота.
func (r *Robot) ValidateInvariants() []error {
	var errs []error
	if r.Model == "" || r.Version == "" {
		errs = append(errs, ErrMissingRequiredFields)
	}
	if r.Created.IsZero() {
		errs = append(errs, ErrInvalidDateFormat)
	}
	return errs
}
