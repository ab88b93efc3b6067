package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/erpnext"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/session"
)

type resourceClient interface {
	FirstResource(ctx context.Context, doctype string, fields []string, filters []erpnext.Filter) (erpnext.RawDocument, error)
	CreateResource(ctx context.Context, doctype string, data map[string]any) (erpnext.RawDocument, error)
}

type tokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*Profile, error)
}

// Identity is the session-bound customer identity.
type Identity struct {
	Customer string `json:"customer"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type Service struct {
	erp      resourceClient
	verifier tokenVerifier
	sessions *session.Store
	logger   *logger.Logger
}

func NewService(erp resourceClient, verifier tokenVerifier, sessions *session.Store, logg *logger.Logger) *Service {
	return &Service{erp: erp, verifier: verifier, sessions: sessions, logger: logg}
}

// SignIn verifies the provider token, resolves (or creates) the matching ERP
// customer, and binds the identity to the session.
func (s *Service) SignIn(ctx context.Context, sessionID, accessToken string) (*Identity, error) {
	profile, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	customer, err := s.resolveCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Customer: customer,
		Email:    profile.Email,
		FullName: fullName(profile),
	}
	if err := s.sessions.Save(ctx, sessionID, session.FieldCustomer, identity); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "binding identity to session")
	}
	if s.logger != nil {
		s.logger.Info(s.logger.WithCustomer(ctx, customer), "customer signed in")
	}
	return identity, nil
}

// Current returns the session's bound identity, CodeUnauthorized when the
// session never signed in.
func (s *Service) Current(ctx context.Context, sessionID string) (*Identity, error) {
	var identity Identity
	found, err := s.sessions.Load(ctx, sessionID, session.FieldCustomer, &identity)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading session identity")
	}
	if !found {
		return nil, errors.New(errors.CodeUnauthorized, "sign in required")
	}
	return &identity, nil
}

// SignOut drops every trace of the session, cart included.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "destroying session")
	}
	return nil
}

// resolveCustomer walks contact -> dynamic link -> customer. A visitor with
// no contact yet gets a customer and contact created on first sign-in.
func (s *Service) resolveCustomer(ctx context.Context, profile *Profile) (string, error) {
	contactDoctype := string(erpdocs.DoctypeContact)
	doc, err := s.erp.FirstResource(ctx, contactDoctype,
		[]string{"name", "first_name", "last_name", "user"},
		[]erpnext.Filter{erpnext.Eq(contactDoctype, "user", profile.Email)})
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return s.createCustomer(ctx, profile)
		}
		return "", err
	}
	contact, err := erpdocs.DecodeContact(doc)
	if err != nil {
		return "", err
	}

	linkDoctype := string(erpdocs.DoctypeDynamicLink)
	linkDoc, err := s.erp.FirstResource(ctx, linkDoctype,
		[]string{"name", "parent", "parenttype", "link_doctype", "link_name"},
		[]erpnext.Filter{
			erpnext.Eq(linkDoctype, "parenttype", contactDoctype),
			erpnext.Eq(linkDoctype, "parent", contact.Name),
			erpnext.Eq(linkDoctype, "link_doctype", string(erpdocs.DoctypeCustomer)),
		})
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			return "", errors.New(errors.CodeConflict,
				fmt.Sprintf("contact %q has no linked customer", contact.Name))
		}
		return "", err
	}
	link, err := erpdocs.DecodeDynamicLink(linkDoc)
	if err != nil {
		return "", err
	}
	return link.LinkName, nil
}

// EnsureUser gets or creates the ERP website user for the profile, so the
// customer can later reach portal features. The welcome mail is suppressed,
// the storefront is the only login surface.
func (s *Service) EnsureUser(ctx context.Context, profile *Profile) (*erpdocs.User, error) {
	userDoctype := string(erpdocs.DoctypeUser)
	doc, err := s.erp.FirstResource(ctx, userDoctype,
		[]string{"name", "email", "first_name", "last_name"},
		[]erpnext.Filter{erpnext.Eq(userDoctype, "email", profile.Email)})
	if err == nil {
		return erpdocs.DecodeUser(doc)
	}
	if !errors.HasCode(err, errors.CodeNotFound) {
		return nil, err
	}

	doc, err = s.erp.CreateResource(ctx, userDoctype, map[string]any{
		"email":              profile.Email,
		"first_name":         profile.FirstName,
		"last_name":          profile.LastName,
		"user_type":          "Website User",
		"send_welcome_email": 0,
	})
	if err != nil {
		return nil, err
	}
	return erpdocs.DecodeUser(doc)
}

func (s *Service) createCustomer(ctx context.Context, profile *Profile) (string, error) {
	if _, err := s.EnsureUser(ctx, profile); err != nil {
		return "", err
	}

	doc, err := s.erp.CreateResource(ctx, string(erpdocs.DoctypeCustomer), map[string]any{
		"customer_name": fullName(profile),
		"customer_type": "Individual",
	})
	if err != nil {
		return "", err
	}
	customer, err := erpdocs.DecodeCustomer(doc)
	if err != nil {
		return "", err
	}

	_, err = s.erp.CreateResource(ctx, string(erpdocs.DoctypeContact), map[string]any{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"user":       profile.Email,
		"email_id":   profile.Email,
		"links": []map[string]any{{
			"link_doctype": string(erpdocs.DoctypeCustomer),
			"link_name":    customer.Name,
		}},
	})
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info(s.logger.WithCustomer(ctx, customer.Name), "customer created on first sign-in")
	}
	return customer.Name, nil
}

func fullName(profile *Profile) string {
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return profile.Email
	}
	return name
}
