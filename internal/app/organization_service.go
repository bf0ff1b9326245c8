package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
)

var (
	ErrAccessDenied  = errors.New("access to organization denied")
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyMember = errors.New("user is already a member")
)

const maxNameLength = 32

type OrganizationService struct {
	orgRepo  *repository.OrganizationRepository
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewOrganizationService(orgRepo *repository.OrganizationRepository, userRepo *repository.UserRepository, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo, userRepo: userRepo, logger: logger}
}

type CreateOrganizationInput struct {
	UserID  uuid.UUID
	Name    string
	IconSrc string
}

// OrganizationDescription is the summary of an organization shown to its members.
type OrganizationDescription struct {
	OrgName            string    `json:"org_name"`
	OrgIconSrc         string    `json:"org_icon_src"`
	OrgID              uuid.UUID `json:"org_id"`
	OrgRootDirectoryID uuid.UUID `json:"org_root_directory_id"`
}

func describeOrganization(org *model.Organization) OrganizationDescription {
	return OrganizationDescription{
		OrgName:            org.Name,
		OrgIconSrc:         org.IconSrc,
		OrgID:              org.ID,
		OrgRootDirectoryID: org.RootDirectoryID,
	}
}

// CreateOrganization creates the organization, its "<name> Home" root directory and makes the
// caller its owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*OrganizationDescription, error) {
	name := strings.TrimSpace(input.Name)
	if input.UserID == uuid.Nil || !validName(name) {
		return nil, ErrInvalidInput
	}

	org := &model.Organization{
		ID:             uuid.New(),
		Name:           name,
		IconSrc:        strings.TrimSpace(input.IconSrc),
		OwnerID:        input.UserID,
		StorageLimitGB: model.DefaultStorageLimitGB,
	}
	root := &model.Directory{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		Name:           truncateRunes(name+" Home", maxNameLength),
		CreatedBy:      input.UserID,
	}
	org.RootDirectoryID = root.ID
	owner := &model.Membership{
		UserID:         input.UserID,
		OrganizationID: org.ID,
		Role:           model.RoleOwner,
	}

	if err := s.orgRepo.CreateWithRoot(ctx, org, root, owner); err != nil {
		return nil, err
	}
	s.logger.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("owner_id", input.UserID.String()),
	)

	desc := describeOrganization(org)
	return &desc, nil
}

func (s *OrganizationService) ListDescriptions(ctx context.Context, userID uuid.UUID) ([]OrganizationDescription, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	orgs, err := s.orgRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]OrganizationDescription, len(orgs))
	for i := range orgs {
		out[i] = describeOrganization(&orgs[i])
	}
	return out, nil
}

// EnsureMember returns the caller's membership or ErrAccessDenied. Unknown organizations are
// reported the same way as foreign ones.
func (s *OrganizationService) EnsureMember(ctx context.Context, userID, organizationID uuid.UUID) (*model.Membership, error) {
	if userID == uuid.Nil || organizationID == uuid.Nil {
		return nil, ErrAccessDenied
	}
	m, err := s.orgRepo.GetMembership(ctx, userID, organizationID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrAccessDenied
	}
	return m, nil
}

type AddMemberInput struct {
	ActorID        uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	Role           string
}

// AddMember gives an existing user access to the organization. Only owners and admins may add
// members, and nobody can be added as a second owner.
func (s *OrganizationService) AddMember(ctx context.Context, input AddMemberInput) (*model.Membership, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	role := input.Role
	if role == "" {
		role = model.RoleMember
	}
	if email == "" || (role != model.RoleMember && role != model.RoleAdmin) {
		return nil, ErrInvalidInput
	}

	actor, err := s.EnsureMember(ctx, input.ActorID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleOwner && actor.Role != model.RoleAdmin {
		return nil, ErrAccessDenied
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.orgRepo.GetMembership(ctx, user.ID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	m := &model.Membership{UserID: user.ID, OrganizationID: input.OrganizationID, Role: role}
	if err := s.orgRepo.AddMember(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return m, nil
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= maxNameLength
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
