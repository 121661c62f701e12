package irrigation

import "github.com/agrosense/irrigation-backend/internal/model"

// Fixed policy constants. Not runtime-configurable.
const (
	moistureThreshold = 30.0

	morningStartHour = 6
	morningEndHour   = 10
	eveningStartHour = 17
	eveningEndHour   = 19
)

// Decide derives the automated pump status from the latest moisture reading
// and the civil hour: ON only when the soil is dry and the hour falls inside
// one of the two watering windows (both endpoints inclusive). Exactly at the
// threshold the soil counts as wet.
func Decide(moisture float64, hour int) string {
	if moisture < moistureThreshold && (inWindow(hour, morningStartHour, morningEndHour) ||
		inWindow(hour, eveningStartHour, eveningEndHour)) {
		return model.StatusOn
	}
	return model.StatusOff
}

func inWindow(hour, from, to int) bool {
	return hour >= from && hour <= to
}
