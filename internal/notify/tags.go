package notify

import (
	"strings"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// BuildTagQuery addresses every user by email, joined with OR.
func BuildTagQuery(users []domain.User) []TagFilter {
	tags := make([]TagFilter, 0, len(users)*2)
	for i, u := range users {
		if i > 0 {
			tags = append(tags, TagFilter{Operator: "OR"})
		}
		tags = append(tags, TagFilter{
			Key:      "email",
			Relation: "=",
			Value:    strings.ToLower(u.ContactInfo().Email),
		})
	}
	return tags
}
