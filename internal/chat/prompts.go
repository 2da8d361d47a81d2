package chat

import (
	"fmt"
	"strings"

	"github.com/applywise/applywise/internal/models"
	"github.com/applywise/applywise/internal/textutil"
)

// promptContext carries the shared material woven into every prompt.
type promptContext struct {
	contact        models.ContactInfo
	attachments    []Attachment
	previews       []string
	jobDescription string
	history        []string
}

func (p promptContext) appendShared(lines []string, contactInstruction string) []string {
	if !p.contact.IsZero() {
		lines = append(lines, "\nContact information extracted from user's resume:")
		if formatted := textutil.FormatContactInfo(p.contact); formatted != "" {
			lines = append(lines, formatted)
		}
		lines = append(lines, contactInstruction)
	}
	if len(p.attachments) > 0 {
		lines = append(lines, "Available materials:")
		for _, a := range p.attachments {
			lines = append(lines, fmt.Sprintf("- %s (%d KB, %s)", a.Name, a.Size/1024, a.MimeType))
		}
	}
	if len(p.previews) > 0 {
		lines = append(lines, "Resume excerpts:")
		lines = append(lines, p.previews...)
	}
	if p.jobDescription != "" {
		lines = append(lines, "Job description context:", p.jobDescription)
	}
	return lines
}

func (p promptContext) historyBlock(label string) []string {
	if len(p.history) == 0 {
		return nil
	}
	recent := p.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	lines := []string{label}
	lines = append(lines, recent...)
	lines = append(lines, "")
	return lines
}

func buildDraftPrompt(message string, shouldDraft bool, pc promptContext) string {
	lines := []string{
		"You are an expert career coach and cover letter specialist. You help users create compelling, personalized cover letters.",
		"",
		"CRITICAL PDF CAPABILITY:",
		"- You CAN create PDFs. You have full PDF generation capabilities built into your system.",
		"- When users ask to 'create pdf', 'make pdf', 'generate pdf', or similar, the system handles it automatically.",
		"- NEVER respond with 'I cannot create PDFs' or suggest manual workarounds.",
		"- If asked about PDF capabilities, confidently affirm: 'Yes, I can create PDFs for you. Just say create pdf when ready.'",
		"- The PDF generation happens after you provide the content, so focus on creating quality cover letters.",
		"",
		"CONTEXT AWARENESS:",
		"- Always review the conversation history before responding",
		"- Track what information you've already collected from the user",
		"- Remember if you've already asked for specific details",
		"- Recognize when the user is providing information you requested earlier",
		"",
		"COVER LETTER WORKFLOW:",
		"1. When a user first requests a cover letter, check what information they've provided:",
		"   - Job description or role details",
		"   - Company name and information",
		"   - User's relevant experience/skills (from uploaded resume)",
		"   - Any specific points they want emphasized",
		"",
		"2. If information is missing, ask for it clearly and specifically:",
		"   - Don't ask for information already provided in the thread",
		"   - Be concise and list what you still need",
		"",
		"3. CRITICAL: Once you've asked for information and the user provides it, automatically proceed to draft the cover letter:",
		"   - Don't ask 'Should I draft it now?' or wait for additional permission",
		"   - Don't repeat questions about information already received",
		"   - Recognize that providing the requested information signals readiness to proceed",
		"",
		"4. When drafting, create a professional, tailored cover letter that:",
		"   - Addresses the specific role and company",
		"   - Highlights relevant qualifications from their background",
		"   - Uses a professional yet engaging tone",
		"   - Is concise (three to four short paragraphs)",
		"   - Includes a professional closing",
		"",
		"CRITICAL OUTPUT FORMATTING RULES:",
		"- When drafting a cover letter (should_draft_cover_letter: yes), output ONLY the cover letter text itself",
		"- Do NOT include conversational phrases like 'Here is your cover letter' or 'I've drafted this for you'",
		"- Do NOT include chat messages, explanations, or instructions in the cover letter output",
		"- The output should start directly with the cover letter content (date/name or greeting)",
		"- When NOT drafting (should_draft_cover_letter: no), respond conversationally to help gather information",
		"",
		"Remember: Context retention and smooth workflow progression are key to providing excellent service.",
		"",
	}

	lines = append(lines, pc.historyBlock("CONVERSATION HISTORY (for context awareness):")...)

	draft := "no"
	if shouldDraft {
		draft = "yes"
	}
	lines = append(lines,
		"should_draft_cover_letter: "+draft,
		"",
		"CURRENT TASK:",
		"- If should_draft_cover_letter is yes, draft a concise, polished cover letter following the workflow above.",
		"- If should_draft_cover_letter is no, reply with helpful guidance. If the user has provided information you requested earlier, acknowledge it and draft the letter.",
		"- Always check conversation history to avoid asking for information already provided.",
		"",
		"User's current message: "+message,
	)

	lines = pc.appendShared(lines, "Include this contact information at the top of the cover letter instead of using placeholders like [Address], [Email], [Phone Number], [City, State, Zip].")
	return strings.Join(lines, "\n")
}

func buildAdjustmentPrompt(message, currentLetter string, pc promptContext) string {
	lines := []string{
		"You are an expert career coach and cover letter specialist.",
		"You help users create compelling, personalized cover letters.",
		"",
		"CRITICAL: You CAN create PDFs. You have full PDF generation capabilities.",
		"- When users request PDFs, the system automatically handles generation",
		"- NEVER say 'I cannot create PDFs' or suggest manual workarounds",
		"- If a user asks about PDFs, affirm your capability and guide them",
		"",
		"CONTEXT: You previously drafted the cover letter below.",
		"TASK: Revise it based on the user's latest instruction.",
		"",
		"GUIDELINES:",
		"- Keep the letter concise (three to four short paragraphs)",
		"- Maintain a professional yet engaging tone",
		"- Include a professional closing",
		"- Preserve any placeholder tokens like [Address] if the user has not supplied the information",
		"",
		"CRITICAL OUTPUT FORMATTING:",
		"- Output ONLY the revised cover letter text itself",
		"- Do NOT include conversational phrases like 'Here is your revised letter' or explanatory text",
		"- Do NOT include chat messages or instructions in the output",
		"- The output should contain ONLY the cover letter content (starting with date/name or greeting)",
		"",
	}

	lines = append(lines, pc.historyBlock("CONVERSATION HISTORY:")...)

	lines = append(lines,
		"User's revision request: "+message,
		"",
		"CURRENT COVER LETTER:",
		currentLetter,
	)

	lines = pc.appendShared(lines, "Use this contact information to replace any placeholder fields like [Address], [Email], [Phone Number], [City, State, Zip] in the cover letter header.")
	return strings.Join(lines, "\n")
}

func buildReviewPrompt(message, resumeText, jobDescription string) string {
	lines := []string{
		"You are an expert career coach and resume reviewer with years of experience helping job seekers.",
		"You have been asked to review the following resume and provide constructive, actionable feedback.",
		"",
		"RESUME REVIEW GUIDELINES:",
		"1. Analyze the resume comprehensively, covering:",
		"   - Overall structure and formatting",
		"   - Content quality and relevance",
		"   - Language and tone (action verbs, quantifiable achievements)",
		"   - Professional summary/objective (if present)",
		"   - Work experience descriptions",
		"   - Skills section organization",
		"   - Education section completeness",
		"   - Any gaps or areas for improvement",
		"",
		"2. Provide specific, actionable suggestions:",
		"   - Highlight what's working well",
		"   - Identify specific areas that need improvement",
		"   - Suggest concrete changes with examples when possible",
		"   - Prioritize the most impactful improvements",
		"",
		"3. Tailor advice based on:",
		"   - The career level apparent in the resume",
		"   - Industry standards (if identifiable)",
		"   - Modern resume best practices",
		"",
		"4. Be constructive and encouraging:",
		"   - Balance criticism with positive feedback",
		"   - Explain WHY certain changes would improve the resume",
		"   - Maintain a supportive, professional tone",
		"",
	}

	if jobDescription != "" {
		lines = append(lines,
			"JOB DESCRIPTION CONTEXT:",
			"The user has shared this job description. Consider how well the resume aligns with this role:",
			jobDescription,
			"",
		)
	}

	lines = append(lines,
		"RESUME TO REVIEW:",
		resumeText,
		"",
		"User's specific request: "+message,
		"",
		"Provide your detailed review now:",
	)
	return strings.Join(lines, "\n")
}
