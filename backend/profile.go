package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmcleod/carepoint/session"
)

// FetchProfile loads the profile for patientID. A {success:true, data}
// envelope yields data. A body without a truthy success flag is still
// accepted when it carries patient fields itself.
func (c *Client) FetchProfile(ctx context.Context, patientID string) (session.Payload, error) {
	const op = "fetch profile"
	if patientID == "" {
		return nil, &session.Error{Kind: session.MissingIdentifier, Op: op}
	}
	body, err := c.get(ctx, op, c.endpoint(c.profilePath, url.Values{"patient_id": {patientID}}))
	if err != nil {
		return nil, err
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, c.networkError(op, fmt.Errorf("%w: %T", ErrUnexpectedShape, body))
	}
	p := session.Payload(obj)

	if success, _ := p["success"].(bool); success {
		if data := p.Object("data"); data != nil {
			return data, nil
		}
	}
	if hasPatientFields(p) {
		return p, nil
	}
	if data := p.Object("data"); data != nil && hasPatientFields(data) {
		return data, nil
	}
	msg := p.String("message", "error")
	if msg == "" {
		msg = "no profile in response"
	}
	return nil, c.networkError(op, fmt.Errorf("%w: %s", ErrUnexpectedShape, msg))
}

func hasPatientFields(p session.Payload) bool {
	return p.String(session.PatientIDKeys...) != "" ||
		p.String(session.NameKeys...) != "" ||
		p.String(session.PhoneKeys...) != "" ||
		p.String(session.EmailKeys...) != ""
}
