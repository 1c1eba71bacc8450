package backend

import (
	"context"
	"fmt"

	"github.com/jmcleod/carepoint/session"
)

// Doctor is one directory entry. The API is loose about field names and
// types, so every field is read through a fallback chain and rendered as a
// string.
type Doctor struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Specialization string          `json:"specialization"`
	Qualification  string          `json:"qualification"`
	Experience     string          `json:"experience"`
	Hospital       string          `json:"hospital"`
	Location       string          `json:"location"`
	Fee            string          `json:"fee"`
	Rating         string          `json:"rating"`
	Image          string          `json:"image"`
	Raw            session.Payload `json:"raw,omitempty"`
}

func doctorFrom(p session.Payload) Doctor {
	return Doctor{
		ID:             p.String("id", "doctor_id", "doctorId"),
		Name:           p.String("name", "doctor_name", "doctorName", "full_name"),
		Specialization: p.String("specialization", "speciality", "specialty", "department"),
		Qualification:  p.String("qualification", "degree"),
		Experience:     p.String("experience", "years_of_experience", "experience_years"),
		Hospital:       p.String("hospital", "hospital_name", "hospitalName", "clinic"),
		Location:       p.String("location", "address", "city"),
		Fee:            p.String("fee", "consultation_fee", "consultationFee"),
		Rating:         p.String("rating"),
		Image:          p.String("image", "profile_image", "profileImage", "photo"),
		Raw:            p,
	}
}

// ListDoctors fetches the doctor directory. Both {message, doctors:[...]}
// and a bare array are accepted.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	const op = "list doctors"
	body, err := c.get(ctx, op, c.endpoint(c.doctorsPath, nil))
	if err != nil {
		return nil, err
	}

	var entries []any
	switch v := body.(type) {
	case []any:
		entries = v
	case map[string]any:
		list, ok := v["doctors"].([]any)
		if !ok {
			list, ok = v["data"].([]any)
		}
		if !ok {
			return nil, c.networkError(op, fmt.Errorf("%w: no doctors array", ErrUnexpectedShape))
		}
		entries = list
	default:
		return nil, c.networkError(op, fmt.Errorf("%w: %T", ErrUnexpectedShape, body))
	}

	doctors := make([]Doctor, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		doctors = append(doctors, doctorFrom(session.Payload(obj)))
	}
	return doctors, nil
}
