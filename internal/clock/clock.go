package clock

import (
	"log"
	"os"
	"strings"
	"time"
)

const defaultTZ = "Asia/Kolkata"

// Clock resolves "now" into a fixed civil timezone. Every date/hour/minute
// boundary decision in the system goes through it, so tests can pin time.
type Clock struct {
	nowFunc func() time.Time
	loc     *time.Location
}

// New builds a Clock on the TZ env var, defaulting to Asia/Kolkata.
func New() *Clock {
	tzName := strings.TrimSpace(os.Getenv("TZ"))
	if tzName == "" {
		tzName = defaultTZ
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Printf("WARN: invalid TZ=%q, falling back to local: %v", tzName, err)
		loc = time.Local
	}
	return &Clock{nowFunc: time.Now, loc: loc}
}

// NewAt builds a Clock with an injected time source. Used by tests.
func NewAt(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{nowFunc: now, loc: loc}
}

func (c *Clock) Now() time.Time           { return c.nowFunc().In(c.loc) }
func (c *Clock) Location() *time.Location { return c.loc }

// CivilDate is today's date in the clock's zone, formatted YYYY-MM-DD.
func (c *Clock) CivilDate() string { return c.Now().Format("2006-01-02") }

func (c *Clock) Hour() int   { return c.Now().Hour() }
func (c *Clock) Minute() int { return c.Now().Minute() }

// DateOf formats an arbitrary instant as a civil date in the clock's zone.
func (c *Clock) DateOf(t time.Time) string { return t.In(c.loc).Format("2006-01-02") }

func (c *Clock) HourOf(t time.Time) int { return t.In(c.loc).Hour() }
