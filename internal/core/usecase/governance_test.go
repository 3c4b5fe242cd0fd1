package usecase

import (
	"testing"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

func TestAccessFilterPublicNeverMatchesRestricted(t *testing.T) {
	filter := AccessFilter(domain.AccessPublic)

	if filter.Matches(domain.ChunkRecord{ChunkID: "r", AccessLevel: domain.AccessRestricted}) {
		t.Fatalf("public request must not match a restricted chunk")
	}
	if !filter.Matches(domain.ChunkRecord{ChunkID: "p", AccessLevel: domain.AccessPublic}) {
		t.Fatalf("public request must match a public chunk")
	}
}

func TestAccessFilterRestrictedExcludesPublic(t *testing.T) {
	// Strict equality cuts both ways: restricted clearance does not see
	// public chunks either.
	filter := AccessFilter(domain.AccessRestricted)

	if filter.Matches(domain.ChunkRecord{ChunkID: "p", AccessLevel: domain.AccessPublic}) {
		t.Fatalf("restricted request must not match a public chunk under strict equality")
	}
	if !filter.Matches(domain.ChunkRecord{ChunkID: "r", AccessLevel: domain.AccessRestricted}) {
		t.Fatalf("restricted request must match a restricted chunk")
	}
}
