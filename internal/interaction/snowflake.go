package interaction

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// DiscordEpochMillis is the platform epoch embedded in snowflake ids (2015-01-01T00:00:00Z).
	DiscordEpochMillis int64 = 1420070400000
	// TimestampDivisor strips the 22 worker/process/increment bits from a snowflake.
	TimestampDivisor int64 = 1 << 22
)

// CreationMillis decodes the creation instant of a snowflake id in unix milliseconds,
// rounded to the nearest millisecond.
func CreationMillis(id int64) int64 {
	return (id+TimestampDivisor/2)/TimestampDivisor + DiscordEpochMillis
}

// SnowflakeTime parses a snowflake id string and returns its creation instant.
func SnowflakeTime(id string) (time.Time, error) {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snowflake %q: %w", id, err)
	}
	if parsed.Int64() < 0 {
		return time.Time{}, fmt.Errorf("parse snowflake %q: negative id", id)
	}
	return time.UnixMilli(CreationMillis(parsed.Int64())), nil
}

// LatencyMillis is the elapsed time between the creation of id and now.
func LatencyMillis(id string, now time.Time) (int64, error) {
	created, err := SnowflakeTime(id)
	if err != nil {
		return 0, err
	}
	return now.UnixMilli() - created.UnixMilli(), nil
}
