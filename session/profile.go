package session

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Projection defaults.
const (
	DefaultName             = "User"
	DefaultLocation         = "Location not set"
	DefaultPlaceholderImage = "https://cdn-icons-png.flaticon.com/512/3135/3135715.png"
)

// ProjectionOptions configures Project.
type ProjectionOptions struct {
	// ImageBaseURL is prepended verbatim to relative image paths.
	ImageBaseURL string
	// PlaceholderImage replaces DefaultPlaceholderImage when set.
	PlaceholderImage string
}

// Profile is the display-ready shape of a stored profile. Every field is
// populated; missing values fall back to fixed defaults.
type Profile struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PatientID     string `json:"patientId"`
	Gender        string `json:"gender"`
	DisplayGender string `json:"displayGender"`
	DateOfBirth   string `json:"dateOfBirth"`
	Age           string `json:"age"`
	BloodGroup    string `json:"bloodGroup"`
	Height        string `json:"height"`
	Weight        string `json:"weight"`
	Location      string `json:"location"`
	ProfileImage  string `json:"profileImage"`
}

// Field fallback chains shared by Project and the identity view.
var (
	NameKeys      = []string{"name", "full_name", "fullName", "patient_name", "patientName", "username"}
	PhoneKeys     = []string{"phone_number", "phone", "mobile", "mobile_number", "phoneNumber"}
	EmailKeys     = []string{"email", "email_id", "emailId"}
	PatientIDKeys = []string{"patient_id", "patientId", "id", "user_id", "userId"}
	imageKeys     = []string{"profile_image", "profileImage", "image", "avatar", "photo"}
	locationKeys  = []string{"address", "location", "city"}
	genderKeys    = []string{"gender", "sex"}
	dobKeys       = []string{"dob", "date_of_birth", "dateOfBirth"}
	ageKeys       = []string{"age"}
	bloodKeys     = []string{"blood_group", "bloodGroup"}
	heightKeys    = []string{"height"}
	weightKeys    = []string{"weight"}
)

// Lookup returns the first non-empty value for keys, searching p and then
// its common profile containers.
func Lookup(p Payload, keys ...string) string {
	if p == nil {
		return ""
	}
	if v := p.String(keys...); v != "" {
		return v
	}
	for _, c := range profileContainers {
		if obj := p.Object(c); obj != nil {
			if v := obj.String(keys...); v != "" {
				return v
			}
		}
	}
	return ""
}

// Project maps a raw payload to a Profile. It is pure: the same input and
// options always give the same output.
func Project(p Payload, opts ProjectionOptions) Profile {
	out := Profile{
		Name:         Lookup(p, NameKeys...),
		Phone:        Lookup(p, PhoneKeys...),
		Email:        Lookup(p, EmailKeys...),
		PatientID:    Lookup(p, PatientIDKeys...),
		Gender:       Lookup(p, genderKeys...),
		DateOfBirth:  Lookup(p, dobKeys...),
		Age:          Lookup(p, ageKeys...),
		BloodGroup:   Lookup(p, bloodKeys...),
		Height:       Lookup(p, heightKeys...),
		Weight:       Lookup(p, weightKeys...),
		Location:     Lookup(p, locationKeys...),
		ProfileImage: ImageURL(Lookup(p, imageKeys...), opts),
	}
	if out.Name == "" {
		out.Name = DefaultName
	}
	if out.Location == "" {
		out.Location = DefaultLocation
	}
	if out.Gender != "" {
		out.DisplayGender = cases.Title(language.English).String(strings.ToLower(out.Gender))
	}
	return out
}

// ImageURL resolves a stored image path. Relative paths are appended to the
// base URL as-is; absolute URLs pass through; empty paths get the placeholder.
func ImageURL(path string, opts ProjectionOptions) string {
	if path == "" {
		if opts.PlaceholderImage != "" {
			return opts.PlaceholderImage
		}
		return DefaultPlaceholderImage
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return opts.ImageBaseURL + path
}
