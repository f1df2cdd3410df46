package kratos

import (
	client "github.com/ory/kratos-client-go"

	"github.com/goliatone/go-educonnect"
)

func toSession(sess *client.Session) *educonnect.Session {
	if sess == nil {
		return nil
	}

	out := &educonnect.Session{ID: sess.Id}
	if sess.ExpiresAt != nil {
		out.ExpiresAt = *sess.ExpiresAt
	}
	if sess.Identity != nil {
		out.Identity = toIdentity(sess.Identity)
	}
	return out
}

// toIdentity flattens the public metadata and the traits of a Kratos
// identity into Identity.Metadata. Traits win on conflicts, the email trait
// becomes Identity.Email.
func toIdentity(identity *client.Identity) *educonnect.Identity {
	if identity == nil || identity.Id == "" {
		return nil
	}

	out := &educonnect.Identity{
		ID:       identity.Id,
		Metadata: map[string]any{},
	}

	if public, ok := identity.MetadataPublic.(map[string]interface{}); ok {
		for key, value := range public {
			out.Metadata[key] = value
		}
	}

	if traits, ok := identity.Traits.(map[string]interface{}); ok {
		for key, value := range traits {
			if key == traitEmail {
				if email, ok := value.(string); ok {
					out.Email = email
				}
				continue
			}
			out.Metadata[key] = value
		}
	}

	return out
}
