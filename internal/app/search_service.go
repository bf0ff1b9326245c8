package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"docvault/internal/rag"
)

type Querier interface {
	Query(ctx context.Context, text string, organizationID uuid.UUID, topK int) ([]rag.Result, error)
}

type SearchService struct {
	orgs   *OrganizationService
	engine Querier
}

func NewSearchService(orgs *OrganizationService, engine Querier) *SearchService {
	return &SearchService{orgs: orgs, engine: engine}
}

type QueryInput struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Query          string
	TopK           int
}

// Query ranks the organization's ingested pages against the query. Callers outside the
// organization get ErrAccessDenied; organizations without ingested files give rag.ErrNoContent.
func (s *SearchService) Query(ctx context.Context, input QueryInput) ([]rag.Result, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" || input.OrganizationID == uuid.Nil || input.TopK < 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.orgs.EnsureMember(ctx, input.UserID, input.OrganizationID); err != nil {
		return nil, err
	}
	return s.engine.Query(ctx, query, input.OrganizationID, input.TopK)
}
