package models

const (
	// DefaultBookingNumberPrefix начало пользовательского номера заявки
	DefaultBookingNumberPrefix = "VT"

	// DefaultLookaheadDays горизонт календаря доступности
	DefaultLookaheadDays = 30

	// DefaultMaxBookingsPerDay порог подтверждённых заявок, после которого день считается занятым
	DefaultMaxBookingsPerDay = 8

	// HoursPerDay число часовых ячеек в сетке
	HoursPerDay = 24

	// DateLayout формат календарной даты без времени
	DateLayout = "2006-01-02"

	// ClockLayout формат времени "HH:MM"
	ClockLayout = "15:04"

	// DefaultSimulatorIntervalMinutes период симулятора активности
	DefaultSimulatorIntervalMinutes = 60

	// CounterTTLSeconds время жизни суточного счётчика номеров в Redis
	CounterTTLSeconds = 48 * 60 * 60
)
