package usecase

import "github.com/kirillkom/governed-rag/internal/core/domain"

// AccessFilter maps a requested clearance level to the metadata predicate
// applied by both retrieval legs. The documented policy is strict equality:
// a public request sees only public chunks and a restricted request sees
// only restricted chunks, not the union. Clearance subsumption (restricted
// implying public) is deliberately not implemented; see DESIGN.md.
func AccessFilter(level domain.AccessLevel) domain.SearchFilter {
	return domain.SearchFilter{AccessLevel: level}
}
