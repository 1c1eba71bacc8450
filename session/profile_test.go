package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectImage(t *testing.T) {
	opts := ProjectionOptions{ImageBaseURL: "https://X/"}

	tests := []struct {
		name    string
		payload Payload
		want    string
	}{
		{"relative path", Payload{"profile_image": "img/a.jpg"}, "https://X/img/a.jpg"},
		{"leading slash kept verbatim", Payload{"profile_image": "/img/a.jpg"}, "https://X//img/a.jpg"},
		{"camel case key", Payload{"profileImage": "u/1.png"}, "https://X/u/1.png"},
		{"absolute url", Payload{"profile_image": "https://cdn/a.jpg"}, "https://cdn/a.jpg"},
		{"missing", Payload{"name": "Arun"}, DefaultPlaceholderImage},
		{"empty string", Payload{"profile_image": ""}, DefaultPlaceholderImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.payload, opts).ProfileImage)
		})
	}

	custom := ProjectionOptions{PlaceholderImage: "https://placeholder/p.png"}
	assert.Equal(t, "https://placeholder/p.png", Project(nil, custom).ProfileImage)
}

func TestProjectDefaults(t *testing.T) {
	got := Project(nil, ProjectionOptions{})
	assert.Equal(t, DefaultName, got.Name)
	assert.Equal(t, DefaultLocation, got.Location)
	assert.Equal(t, "", got.Phone)
	assert.Equal(t, "", got.Email)
	assert.Equal(t, "", got.PatientID)
	assert.Equal(t, "", got.Age)
	assert.Equal(t, "", got.DisplayGender)
}

func TestProjectFallbackChains(t *testing.T) {
	p := Payload{
		"full_name":     "Arun Kumar",
		"mobile":        "8122839500",
		"email_id":      "arun@example.com",
		"id":            json.Number("51"),
		"gender":        "MALE",
		"date_of_birth": "1990-04-12",
		"age":           json.Number("35"),
		"bloodGroup":    "O+",
		"city":          "Chennai",
	}
	got := Project(p, ProjectionOptions{})
	assert.Equal(t, "Arun Kumar", got.Name)
	assert.Equal(t, "8122839500", got.Phone)
	assert.Equal(t, "arun@example.com", got.Email)
	assert.Equal(t, "51", got.PatientID)
	assert.Equal(t, "MALE", got.Gender)
	assert.Equal(t, "Male", got.DisplayGender)
	assert.Equal(t, "1990-04-12", got.DateOfBirth)
	assert.Equal(t, "35", got.Age)
	assert.Equal(t, "O+", got.BloodGroup)
	assert.Equal(t, "Chennai", got.Location)
}

func TestProjectNestedUser(t *testing.T) {
	p := Payload{"token": "t", "user": map[string]any{"name": "Bala", "patient_id": 7.0}}
	got := Project(p, ProjectionOptions{})
	assert.Equal(t, "Bala", got.Name)
	assert.Equal(t, "7", got.PatientID)
}

func TestProjectPrefersTopLevel(t *testing.T) {
	p := Payload{"name": "Top", "user": map[string]any{"name": "Nested"}}
	assert.Equal(t, "Top", Project(p, ProjectionOptions{}).Name)
}

func TestValidators(t *testing.T) {
	emails := map[string]bool{
		"arun@example.com": true,
		"a@b.c":            true,
		"no-at.example":    false,
		"a@b":              false,
		"a b@c.d":          false,
		"a@@b.c":           false,
		"":                 false,
	}
	for in, want := range emails {
		assert.Equal(t, want, ValidEmail(in), "email %q", in)
	}

	phones := map[string]bool{
		"8122839500":       true,
		"(812) 283-9500":   true,
		"+91 81228 39500":  false,
		"812283950":        false,
		"81228395001":      false,
		"abc8122839500xyz": true,
	}
	for in, want := range phones {
		assert.Equal(t, want, ValidPhone(in), "phone %q", in)
	}
}

func TestTimeHelpers(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 5, 7, 123456789, time.UTC)
	assert.Equal(t, "2025-03-01T09:05:07.123Z", FormatISO(ts))

	t.Run("ParseTime", func(t *testing.T) {
		got, ok := ParseTime("2025-03-01T09:05:07.123Z")
		assert.True(t, ok)
		assert.Equal(t, ts.Truncate(time.Millisecond), got)

		got, ok = ParseTime(json.Number("1740819600000"))
		assert.True(t, ok)
		assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), got)

		got, ok = ParseTime(float64(1740819600000))
		assert.True(t, ok)
		assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), got)

		_, ok = ParseTime("yesterday")
		assert.False(t, ok)
		_, ok = ParseTime(nil)
		assert.False(t, ok)
	})

	t.Run("FloorMinutes", func(t *testing.T) {
		assert.Equal(t, 1, FloorMinutes(119*time.Second))
		assert.Equal(t, 0, FloorMinutes(0))
		assert.Equal(t, -1, FloorMinutes(-time.Second))
		assert.Equal(t, -2, FloorMinutes(-2*time.Minute))
	})

	t.Run("FormatDuration", func(t *testing.T) {
		assert.Equal(t, "0m", FormatDuration(-5))
		assert.Equal(t, "45m", FormatDuration(45))
		assert.Equal(t, "2h", FormatDuration(120))
		assert.Equal(t, "23h 59m", FormatDuration(1439))
	})

	t.Run("FormatRemaining", func(t *testing.T) {
		assert.Equal(t, "Not logged in", FormatRemaining(nil))
		assert.Equal(t, "Expired", FormatRemaining(&Info{IsExpired: true}))
		assert.Equal(t, "No expiry", FormatActiveRemaining(nil, true))
		assert.Equal(t, "Not logged in", FormatActiveRemaining(nil, false))
		assert.Equal(t, "Expired", FormatActiveRemaining(&Info{IsExpired: true}, false))
		assert.Equal(t, "1h 30m remaining", FormatRemaining(&Info{IsValid: true, RemainingMinutes: 90}))
	})

	t.Run("FormatTimestamp", func(t *testing.T) {
		assert.Equal(t, "Mar 1, 2025 9:05 AM", FormatTimestamp(ts, time.UTC))
		assert.Equal(t, "", FormatTimestamp(time.Time{}, time.UTC))
	})
}
