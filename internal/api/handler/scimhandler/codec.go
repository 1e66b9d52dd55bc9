package scimhandler

import (
	"scim/internal/provisioning"
	"scim/pkg/domain"
	"scim/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ListResponseSchema is the SCIM message schema of list responses.
const ListResponseSchema = "urn:ietf:params:scim:api:messages:2.0:ListResponse"

// EncodeUser writes the SCIM projection of a user. The key set and order are
// fixed: id, userName, firstName, lastName, email.
func EncodeUser(e *jx.Encoder, u *domain.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID.String())
	e.FieldStart("userName")
	e.Str(u.UserName)
	e.FieldStart("firstName")
	e.Str(u.FirstName)
	e.FieldStart("lastName")
	e.Str(u.LastName)
	e.FieldStart("email")
	e.Str(u.Email)
	e.ObjEnd()
}

// EncodeListResponse writes a SCIM ListResponse envelope for the page.
func EncodeListResponse(e *jx.Encoder, page provisioning.Page) {
	e.ObjStart()
	e.FieldStart("schemas")
	e.ArrStart()
	e.Str(ListResponseSchema)
	e.ArrEnd()
	e.FieldStart("totalResults")
	e.Int64(page.TotalResults)
	e.FieldStart("startIndex")
	e.Int(page.StartIndex)
	e.FieldStart("itemsPerPage")
	e.Int(len(page.Users))
	e.FieldStart("Resources")
	e.ArrStart()
	for i := range page.Users {
		EncodeUser(e, &page.Users[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

// EncodeError writes {"error": msg}.
func EncodeError(e *jx.Encoder, msg string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
}

// userRequest tracks which attributes of a create/replace body were present.
type userRequest struct {
	attrs domain.UserAttributes

	hasUserName   bool
	hasGivenName  bool
	hasFamilyName bool
	hasEmails     bool
	emailCount    int
	hasEmailValue bool
}

// optionalStr reads a string or null. ok is false for null.
func optionalStr(d *jx.Decoder, path string) (string, bool, error) {
	switch d.Next() {
	case jx.Null:
		return "", false, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return "", false, errors.Wrap(err, path)
		}

		return s, true, nil
	default:
		return "", false, serrors.With(serrors.ErrBadRequest, "%s must be a string", path)
	}
}

func (r *userRequest) decodeName(d *jx.Decoder) error {
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.Object:
	default:
		return serrors.With(serrors.ErrBadRequest, "name must be an object")
	}

	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "givenName":
			r.attrs.FirstName, r.hasGivenName, err = optionalStr(d, "name.givenName")
		case "familyName":
			r.attrs.LastName, r.hasFamilyName, err = optionalStr(d, "name.familyName")
		default:
			err = d.Skip()
		}

		return err
	})
}

func (r *userRequest) decodeEmails(d *jx.Decoder) error {
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.Array:
	default:
		return serrors.With(serrors.ErrBadRequest, "emails must be an array")
	}
	r.hasEmails = true

	return d.Arr(func(d *jx.Decoder) error {
		r.emailCount++
		if r.emailCount > 1 {
			// only the first address is stored
			return d.Skip()
		}
		if d.Next() != jx.Object {
			return serrors.With(serrors.ErrBadRequest, "emails[0] must be an object")
		}

		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "value" {
				return d.Skip()
			}
			var err error
			r.attrs.Email, r.hasEmailValue, err = optionalStr(d, "emails[0].value")

			return err
		})
	})
}

func (r *userRequest) missing() string {
	switch {
	case !r.hasUserName:
		return "userName"
	case !r.hasGivenName:
		return "name.givenName"
	case !r.hasFamilyName:
		return "name.familyName"
	case !r.hasEmails:
		return "emails"
	case r.emailCount == 0:
		return "emails[0]"
	case !r.hasEmailValue:
		return "emails[0].value"
	}

	return ""
}

// DecodeUserRequest parses a create or replace body:
//
//	{"userName": str, "name": {"givenName": str, "familyName": str}, "emails": [{"value": str}, ...]}
//
// Unknown attributes are ignored. Missing or null required attributes, an
// empty emails list and malformed JSON are reported as BAD_REQUEST.
func DecodeUserRequest(data []byte) (domain.UserAttributes, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return domain.UserAttributes{}, serrors.With(serrors.ErrBadRequest, "request body must be a JSON object")
	}

	var r userRequest
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "userName":
			r.attrs.UserName, r.hasUserName, err = optionalStr(d, "userName")
		case "name":
			err = r.decodeName(d)
		case "emails":
			err = r.decodeEmails(d)
		default:
			err = d.Skip()
		}

		return err
	}); err != nil {
		return domain.UserAttributes{}, badBody(err)
	}
	if d.Next() != jx.Invalid {
		return domain.UserAttributes{}, serrors.With(serrors.ErrBadRequest, "unexpected data after JSON body")
	}

	if path := r.missing(); path != "" {
		return domain.UserAttributes{}, serrors.With(serrors.ErrBadRequest, "missing required attribute: %s", path)
	}

	return r.attrs, nil
}

// badBody keeps semantic errors raised while decoding and turns syntax errors
// into a generic BAD_REQUEST.
func badBody(err error) error {
	var se *serrors.Error
	if errors.As(err, &se) {
		return se
	}

	return serrors.Wrap(serrors.ErrBadRequest, err, "invalid JSON body")
}
