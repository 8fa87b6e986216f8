package assistant

import (
	"fmt"
	"strings"

	"github.com/portfolio-bff/backend/internal/portfolio"
)

// RuleSet switches individual post-processing rules on or off. Rules keep
// their order regardless of which are enabled.
type RuleSet struct {
	Refusal          bool
	ShortWithLink    bool
	LinkPlacement    bool
	MissingKnowledge bool
	AppendLink       bool
}

func AllRules() RuleSet {
	return RuleSet{
		Refusal:          true,
		ShortWithLink:    true,
		LinkPlacement:    true,
		MissingKnowledge: true,
		AppendLink:       true,
	}
}

const (
	shortReplyLimit   = 200
	shortSegmentLimit = 50
)

// PostProcessor rewrites upstream replies so they stay grounded in the
// portfolio and carry its canonical link. The first matching rule wins.
type PostProcessor struct {
	ctx   *portfolio.Context
	rules RuleSet
}

func NewPostProcessor(pc *portfolio.Context, rules RuleSet) *PostProcessor {
	return &PostProcessor{ctx: pc, rules: rules}
}

func (p *PostProcessor) Process(raw string) string {
	lower := strings.ToLower(raw)
	url := p.ctx.Website
	hasURL := strings.Contains(raw, url)

	if p.rules.Refusal && isRefusal(lower) {
		return OffTopicReply(p.ctx)
	}

	if p.rules.ShortWithLink && hasURL &&
		(len(raw) < shortReplyLimit || strings.Contains(lower, "visit the website for more")) {
		return p.expandShort(raw, lower)
	}

	if p.rules.LinkPlacement && hasURL {
		if out, ok := p.placeLink(raw); ok {
			return out
		}
	}

	if p.rules.MissingKnowledge && containsAny(lower, "i don't have", "i don't know", "not specified") {
		return fmt.Sprintf("%s\n\nHere's what I do know about %s:\n- He's a %s with skills in %s\n- His projects include %s\n\nFor more specific information, you can visit %s",
			raw,
			p.ctx.Name,
			p.ctx.Role,
			strings.Join(p.ctx.TopSkills(3), ", "),
			strings.Join(p.ctx.ProjectNames(2), " and "),
			url,
		)
	}

	if p.rules.AppendLink && !hasURL {
		return fmt.Sprintf("%s\n\nFor more information, visit %s's portfolio at %s", raw, p.ctx.Name, url)
	}

	return raw
}

func isRefusal(lower string) bool {
	return strings.Contains(lower, "i'm sorry") &&
		containsAny(lower, "can't assist", "cannot assist", "only designed to help")
}

func (p *PostProcessor) expandShort(raw, lower string) string {
	name, url := p.ctx.Name, p.ctx.Website

	switch {
	case strings.Contains(lower, "recent projects"):
		items := make([]string, 0, len(p.ctx.Projects))
		for _, pr := range p.ctx.Projects {
			items = append(items, fmt.Sprintf("- **%s**: %s (Technologies: %s)", pr.Name, pr.Description, pr.Technologies))
		}
		return fmt.Sprintf("Here are %s's recent projects:\n\n%s\n\nYou can view these projects in more detail at %s",
			name, strings.Join(items, "\n\n"), url)

	case containsAny(lower, "tech stack", "skills"):
		return fmt.Sprintf("%s specializes in the following technologies:\n\n%s\n\nFor more details about his skills, you can visit %s",
			name, strings.Join(p.ctx.Skills, "\n"), url)

	// "ai" also matches inside words such as "maintain"
	case containsAny(lower, "ai", "assistance"):
		return fmt.Sprintf("%s\n\nYou can experience this AI assistant directly at %s", p.ctx.AIFeatures, url)

	default:
		return fmt.Sprintf("%s\n\n%s's portfolio showcases his skills including %s and projects like %s. You can explore more at %s",
			raw, name,
			strings.Join(p.ctx.TopSkills(3), ", "),
			strings.Join(p.ctx.ProjectNames(-1), ", "),
			url,
		)
	}
}

// placeLink moves a reply that leads with the link behind a factual opener,
// or closes a reply that ends on the link with an invitation.
func (p *PostProcessor) placeLink(raw string) (string, bool) {
	url := p.ctx.Website
	parts := strings.Split(raw, url)
	before := parts[0]
	beforeLower := strings.ToLower(before)

	if len(strings.TrimSpace(before)) < shortSegmentLimit ||
		strings.Contains(beforeLower, "visit") || strings.Contains(beforeLower, "check") {
		return fmt.Sprintf("Based on %s's portfolio:\n\n%s", p.ctx.Name, raw), true
	}

	if len(parts) > 1 && len(strings.TrimSpace(parts[len(parts)-1])) < shortSegmentLimit {
		return fmt.Sprintf("%s %s\n\nFeel free to ask more questions about %s's skills or projects!", before, url, p.ctx.Name), true
	}

	return "", false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
