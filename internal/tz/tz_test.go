package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	winter = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	summer = time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)
)

func TestLoad_UTC(t *testing.T) {
	for _, name := range []string{"", "UTC"} {
		loc, err := Load(name)
		require.NoError(t, err)
		assert.Same(t, time.UTC, loc)
	}
}

func TestLoad_Rules(t *testing.T) {
	tests := map[string]struct {
		rule       string
		at         time.Time
		wantName   string
		wantOffset int
	}{
		"us eastern winter":     {"EST5EDT,M3.2.0,M11.1.0", winter, "EST", -5 * 3600},
		"us eastern summer":     {"EST5EDT,M3.2.0,M11.1.0", summer, "EDT", -4 * 3600},
		"central europe winter": {"CET-1CEST,M3.5.0,M10.5.0/3", winter, "CET", 3600},
		"central europe summer": {"CET-1CEST,M3.5.0,M10.5.0/3", summer, "CEST", 2 * 3600},
		"default dst rules":     {"EST5EDT", summer, "EDT", -4 * 3600},
		"fixed":                 {"JST-9", summer, "JST", 9 * 3600},
		"quoted":                {"<+03>-3", winter, "+03", 3 * 3600},
		"minutes":               {"IST-5:30", winter, "IST", 5*3600 + 30*60},
		"julian rules":          {"AAA3BBB,J60/2,J300/2", summer, "BBB", -2 * 3600},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			loc, err := Load(tt.rule)
			require.NoError(t, err)

			gotName, gotOffset := tt.at.In(loc).Zone()
			assert.Equal(t, tt.wantName, gotName)
			assert.Equal(t, tt.wantOffset, gotOffset)
			assert.Equal(t, tt.rule, loc.String())
		})
	}
}

func TestLoad_RuleFormatsLocalTime(t *testing.T) {
	loc, err := Load("CET-1CEST,M3.5.0,M10.5.0/3")
	require.NoError(t, err)

	at := time.Date(2024, time.March, 5, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, " 05 March 2024 14:30:00 ", at.In(loc).Format(" 02 January 2006 15:04:05 "))
}

func TestLoad_ZoneDatabase(t *testing.T) {
	loc, err := Load("Europe/Paris")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Paris", loc.String())
	_, offset := summer.In(loc).Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestLoad_Abbreviation(t *testing.T) {
	loc, err := Load("EST")
	require.NoError(t, err)

	for _, at := range []time.Time{winter, summer} {
		_, offset := at.In(loc).Zone()
		assert.Equal(t, -5*3600, offset)
	}
}

func TestIsRule(t *testing.T) {
	rules := []string{"EST5EDT", "CET-1CEST,M3.5.0,M10.5.0/3", "AAA3BBB,J60/2,J300/2", "<+03>-3", "E5", "JST-9"}
	for _, name := range rules {
		assert.True(t, isRule(name), name)
	}
	for _, name := range []string{"EST", "Europe/Paris", "Etc/GMT+5", "America/Argentina/Buenos_Aires"} {
		assert.False(t, isRule(name), name)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]error{
		"E5":                        ErrInvalidRule,
		"EST25":                     ErrInvalidRule,
		"EST5EDT,M3.2.0":            ErrInvalidRule,
		"EST5EDT,M13.2.0,M11.1.0":   ErrInvalidRule,
		"EST5,M3.2.0,M11.1.0":       ErrInvalidRule,
		"EST5EDT,M3.2.0/2x,M11.1.0": ErrInvalidRule,
		"<+0>-3":                    ErrInvalidRule,
		"<+03-3":                    ErrInvalidRule,
		"Nowhere/Special":           ErrUnknownZone,
		"XYZ":                       ErrUnknownZone,
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			loc, err := Load(name)
			assert.ErrorIs(t, err, want)
			assert.Nil(t, loc)
		})
	}
}
