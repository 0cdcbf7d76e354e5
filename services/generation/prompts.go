package generation

import (
	"fmt"
	"strings"

	"github.com/upb/vector-cv/models"
)

const skillsGapSystemPrompt = "You are a technical recruiter who values data over fluff."

const cvSystemPrompt = `You write CVs in markdown for the candidate described in the user message.

CRITICAL ANTI-FABRICATION RULES:
1. SOURCE OF TRUTH: Use ONLY the provided experience blocks. If information is not explicitly in the data, DO NOT INCLUDE IT.
2. NO INVENTED CREDENTIALS: Never invent degrees, certifications, company names, dates or project names.
3. NO PLACEHOLDER DATES: If dates are not provided, omit them entirely.
4. NO GENERIC CERTIFICATIONS: Do not add certifications unless they are explicitly listed in the data.

STYLE:
- Section headers use "## " followed by the section name.
- Bullet points start with "* ".
- Bold-highlight technologies, e.g. **PostgreSQL**.
- Quantify achievements with the numbers given in the blocks.
- Use direct action verbs such as "Engineered", "Implemented", "Integrated". No passive voice.
- Never use "leveraging", "utilizing", "demonstrating proficiency", "showcasing ability" or "honed skills".
- One line per bullet when possible.

STRUCTURE:
# [Name]
[contact line with every link provided]

## Summary
[2-3 sentences. One sentence is tailored to the target job.]

## Core Technical Strengths
## Key Projects
## Professional Experience
## Education`

const coverLetterSystemPrompt = `You write cover letters in markdown for the candidate described in the user message.

VOICE:
- Conversational but professional, engineer to engineer.
- Direct and confident. No hedging with "I believe" or "I think".
- Specific technical details, actual tech stacks rather than "modern practices".
- Active voice only.

Never use "vibrant tech scene", "remarkable journey", "deeply immersed", "has equipped me with",
"has honed", "I've been closely following" or "contribute meaningfully".

STRUCTURE:
1. Hook: two or three sentences showing domain knowledge of the company's product.
2. Match: how one of the candidate's projects shares technical ground with the company's challenges.
3. Bonus skills: address any "Bonus" or nice-to-have requirements with concrete examples.
4. Forward-looking: specific initiatives from the posting the candidate is excited about.
5. Closing: thank the reader and name the relevant tech and domain.

Keep the letter under 400 words. Bold technologies.`

// blockSection renders blocks in the BLOCK/CONTENT/TAGS layout the CV prompt uses
func blockSection(blocks []*models.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("BLOCK: %s\nCONTENT: %s\nTAGS: %s", heading(b), b.Body, strings.Join(b.Tags, ", ")))
	}
	return strings.Join(parts, "\n\n")
}

func heading(b *models.ContentBlock) string {
	if b.Organization == "" {
		return b.Title
	}
	return b.Title + " at " + b.Organization
}

func skillsGapPrompt(blocks []*models.ContentBlock, job string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("**%s**\n%s\nSkills: %s", heading(b), b.Body, strings.Join(b.Tags, ", ")))
	}

	return fmt.Sprintf(`You are a Technical Lead analyzing a candidate for a role.

CANDIDATE EXPERIENCE:
%s

JOB DESCRIPTION:
%s

Analyze the skills gap. Be specific about versions and ecosystems (e.g., 'Laravel' vs 'PHP').
Return ONLY valid JSON:
{
    "missing_skills": [],
    "matching_skills": [],
    "partial_matches": [],
    "recommendations": []
}`, strings.Join(parts, "\n\n"), job)
}

func guidelineLines(guidelines []*models.StyleGuideline) string {
	lines := make([]string, 0, len(guidelines))
	for _, g := range guidelines {
		lines = append(lines, fmt.Sprintf("- %s: %s", g.Name, g.Description))
	}
	return strings.Join(lines, "\n")
}

func cvPrompt(profile *models.ProfileInfo, blocks []*models.ContentBlock, job string, guidelines []*models.StyleGuideline) string {
	var sb strings.Builder
	sb.WriteString("CANDIDATE DATA:\n")
	fmt.Fprintf(&sb, "Name: %s\n", profile.Name)
	fmt.Fprintf(&sb, "Email: %s\n", profile.Email)
	fmt.Fprintf(&sb, "Phone: %s\n", profile.Phone)
	fmt.Fprintf(&sb, "Location: %s\n", profile.Location)
	fmt.Fprintf(&sb, "LinkedIn: %s\n", profile.LinkedIn)
	fmt.Fprintf(&sb, "GitHub: %s\n", profile.GitHub)
	fmt.Fprintf(&sb, "Portfolio: %s\n", profile.Portfolio)
	fmt.Fprintf(&sb, "Summary: %s\n\n", profile.Summary)

	sb.WriteString("EXPERIENCE BLOCKS (USE ONLY THIS DATA - DO NOT INVENT ANYTHING):\n")
	sb.WriteString(blockSection(blocks))
	sb.WriteString("\n\nTARGET JOB:\n")
	sb.WriteString(job)
	sb.WriteString("\n\nSTYLE GUIDELINES:\n")
	sb.WriteString(guidelineLines(guidelines))
	sb.WriteString(`

INSTRUCTIONS:
1. Include every contact link in the header. Do not omit the portfolio URL.
2. In the Summary, highlight the one or two aspects of the job the blocks cover best.
3. For each project keep the wording of the source block; do not expand it.
4. Copy GitHub links and demo credentials from the blocks verbatim.
5. Take education from the education blocks if present.
`)
	return sb.String()
}

func coverLetterPrompt(profile *models.ProfileInfo, blocks []*models.ContentBlock, job, company, title string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("PROJECT: %s\nDETAILS: %s", b.Title, b.Body))
	}

	return fmt.Sprintf(`CANDIDATE: %s
LOCATION: %s
EMAIL: %s
PHONE: %s
JOB: %s at %s

CANDIDATE'S RELEVANT PROJECTS:
%s

JOB DESCRIPTION (identify the technical core, "Bonus" requirements and specific initiatives):
%s

Sign the letter with the candidate's name, phone and email.`,
		profile.Name, profile.Location, profile.Email, profile.Phone, title, company,
		strings.Join(parts, "\n\n"), job)
}
